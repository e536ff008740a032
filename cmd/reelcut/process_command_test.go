package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelcut/internal/testsupport"
)

// poseStubScript emits a metadata header followed by frames whose single
// landmark drifts one unit per frame, which scores well above any sane
// movement threshold.
func poseStubScript(frameCount int, fps float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"fps":%g,"frame_count":%d}`+"\n", fps, frameCount)
	x := 0.0
	for i := 0; i < frameCount; i++ {
		fmt.Fprintf(&b, `{"landmarks":[[%.1f,0.0,0.0]]}`+"\n", x)
		x += 1.0
	}
	return "#!/bin/sh\ncat <<'EOF'\n" + b.String() + "EOF\n"
}

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func TestProcessCompilesHighlightReel(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDetection(0.5, 3, 5))

	binDir := t.TempDir()
	env.cfg.Tools.FFmpeg = writeStub(t, binDir, "ffmpeg", "#!/bin/sh\nexit 0\n")
	env.cfg.Tools.FFprobe = writeStub(t, binDir, "ffprobe", "#!/bin/sh\nexit 0\n")
	env.cfg.Tools.Pose = writeStub(t, binDir, "pose-landmarker", poseStubScript(40, 10))
	// Keep the source container so no transcode runs before detection.
	env.cfg.Detection.TargetHeight = 0
	env.cfg.Detection.TargetFPS = 0
	writeTestConfig(t, env.configPath, env.cfg)

	input := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, input, 256)
	output := filepath.Join(t.TempDir(), "out.mp4")

	out, _, err := runCLI(t, []string{"process", input, "--out", output}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "Found 1 segments")
	requireContains(t, out, "Wrote "+output)
}

func TestProcessNoMotionFails(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDetection(0.5, 3, 5))

	binDir := t.TempDir()
	env.cfg.Tools.FFmpeg = writeStub(t, binDir, "ffmpeg", "#!/bin/sh\nexit 0\n")
	env.cfg.Tools.FFprobe = writeStub(t, binDir, "ffprobe", "#!/bin/sh\nexit 0\n")
	// All frames empty: humans never appear.
	env.cfg.Tools.Pose = writeStub(t, binDir, "pose-landmarker",
		"#!/bin/sh\ncat <<'EOF'\n{\"fps\":10,\"frame_count\":3}\n{\"landmarks\":null}\n{\"landmarks\":null}\n{\"landmarks\":null}\nEOF\n")
	env.cfg.Detection.TargetHeight = 0
	env.cfg.Detection.TargetFPS = 0
	writeTestConfig(t, env.configPath, env.cfg)

	input := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, input, 256)

	_, _, err := runCLI(t, []string{"process", input}, env.configPath)
	if err == nil {
		t.Fatal("expected error when nothing moves")
	}
	requireContains(t, err.Error(), "no moving humans detected")
}

func TestProcessMissingInputFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"process", filepath.Join(t.TempDir(), "absent.mp4")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	requireContains(t, err.Error(), "open input video")
}
