package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"reelcut/internal/clipplan"
)

func setHelperCommand(t *testing.T, mode string, captured *[][]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append(*captured, append([]string(nil), args...))
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "Invalid data found when processing input")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func TestNormalizeSkipsDecodableInput(t *testing.T) {
	setHelperCommand(t, "success", nil)

	n := NewNormalizer()
	input := filepath.Join(t.TempDir(), "clip.mp4")
	got, err := n.Normalize(context.Background(), input, t.TempDir(), "file-1", NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got != input {
		t.Fatalf("expected passthrough path %q, got %q", input, got)
	}
}

func TestNormalizeTranscodesNonMP4(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "success", &captured)

	n := NewNormalizer()
	outputDir := filepath.Join(t.TempDir(), "processing")
	got, err := n.Normalize(context.Background(), "/videos/raw.mov", outputDir, "file-1", NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	want := filepath.Join(outputDir, "raw_file-1.mp4")
	if got != want {
		t.Fatalf("expected output path %q, got %q", want, got)
	}
	if len(captured) != 1 {
		t.Fatalf("expected one ffmpeg invocation, got %d", len(captured))
	}
	args := captured[0]
	if findArg(args, "libx264") == -1 {
		t.Fatalf("expected libx264 codec, got %v", args)
	}
	if findArg(args, "+faststart") == -1 {
		t.Fatalf("expected faststart flag, got %v", args)
	}
	if idx := findArg(args, "-vf"); idx == -1 || args[idx+1] != "scale=trunc(iw/2)*2:trunc(ih/2)*2" {
		t.Fatalf("expected even-dimension scale filter, got %v", args)
	}
}

func TestNormalizeTranscodesMP4WithOverrides(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "success", &captured)

	n := NewNormalizer()
	outputDir := t.TempDir()
	if _, err := n.Normalize(context.Background(), "/videos/clip.mp4", outputDir, "f", NormalizeOptions{TargetHeight: 720, TargetFPS: 30}); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected one ffmpeg invocation, got %d", len(captured))
	}
	args := captured[0]
	idx := findArg(args, "-vf")
	if idx == -1 {
		t.Fatalf("expected video filter flag, got %v", args)
	}
	if args[idx+1] != "scale=-2:720,fps=30" {
		t.Fatalf("unexpected filter chain %q", args[idx+1])
	}
}

func TestNormalizeRoundsOddHeightDown(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "success", &captured)

	n := NewNormalizer()
	if _, err := n.Normalize(context.Background(), "/videos/clip.mkv", t.TempDir(), "f", NormalizeOptions{TargetHeight: 721}); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	args := captured[0]
	idx := findArg(args, "-vf")
	if idx == -1 || args[idx+1] != "scale=-2:720" {
		t.Fatalf("expected even height filter, got %v", args)
	}
}

func TestNormalizeReportsToolStderr(t *testing.T) {
	setHelperCommand(t, "failure", nil)

	n := NewNormalizer()
	_, err := n.Normalize(context.Background(), "/videos/broken.avi", t.TempDir(), "f", NormalizeOptions{})
	if err == nil {
		t.Fatal("expected transcode failure")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
}

func TestNormalizeRequiresInput(t *testing.T) {
	n := NewNormalizer()
	if _, err := n.Normalize(context.Background(), "", t.TempDir(), "f", NormalizeOptions{}); err == nil {
		t.Fatal("expected error for empty input path")
	}
}

func TestCompileEmptyWindowsProducesNothing(t *testing.T) {
	c := NewCompiler()
	got, err := c.Compile(context.Background(), "/videos/in.mp4", nil, filepath.Join(t.TempDir(), "out.mp4"))
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty output path, got %q", got)
	}
}

func TestCompileTrimsAndConcatenates(t *testing.T) {
	var captured [][]string
	setHelperCommand(t, "success", &captured)

	c := NewCompiler()
	outputPath := filepath.Join(t.TempDir(), "highlights.mp4")
	windows := []clipplan.Window{{Start: 0, End: 5}, {Start: 11.5, End: 16.5}}
	got, err := c.Compile(context.Background(), "/videos/in.mp4", windows, outputPath)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if got != outputPath {
		t.Fatalf("expected output path %q, got %q", outputPath, got)
	}
	// One trim per window plus the concat pass.
	if len(captured) != 3 {
		t.Fatalf("expected 3 ffmpeg invocations, got %d", len(captured))
	}
	first := captured[0]
	if idx := findArg(first, "-ss"); idx == -1 || first[idx+1] != "0.000" {
		t.Fatalf("expected first trim start 0.000, got %v", first)
	}
	if idx := findArg(first, "-to"); idx == -1 || first[idx+1] != "5.000" {
		t.Fatalf("expected first trim end 5.000, got %v", first)
	}
	second := captured[1]
	if idx := findArg(second, "-ss"); idx == -1 || second[idx+1] != "11.500" {
		t.Fatalf("expected second trim start 11.500, got %v", second)
	}
	final := captured[2]
	if idx := findArg(final, "-f"); idx == -1 || final[idx+1] != "concat" {
		t.Fatalf("expected concat demuxer pass, got %v", final)
	}
	if final[len(final)-1] != outputPath {
		t.Fatalf("expected concat output %q, got %v", outputPath, final)
	}
}

func TestCompileReportsToolStderr(t *testing.T) {
	setHelperCommand(t, "failure", nil)

	c := NewCompiler()
	_, err := c.Compile(context.Background(), "/videos/in.mp4", []clipplan.Window{{Start: 0, End: 1}}, filepath.Join(t.TempDir(), "out.mp4"))
	if err == nil {
		t.Fatal("expected compile failure")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected stderr detail in error, got %v", err)
	}
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
