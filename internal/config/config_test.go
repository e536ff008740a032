package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelcut/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Detection.MovementThreshold != 0.02 {
		t.Fatalf("unexpected default movement_threshold: %v", cfg.Detection.MovementThreshold)
	}
	if cfg.Detection.MinMovingFrames != 3 {
		t.Fatalf("unexpected default min_moving_frames: %d", cfg.Detection.MinMovingFrames)
	}
	if cfg.Compile.BufferBeforeSeconds != 2.0 || cfg.Compile.BufferAfterSeconds != 3.0 {
		t.Fatalf("unexpected buffer defaults: %+v", cfg.Compile)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.Pose != "pose-landmarker" {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tools)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[paths]
upload_dir = "` + filepath.Join(dir, "up") + `"
processing_dir = "` + filepath.Join(dir, "proc") + `"
download_dir = "` + filepath.Join(dir, "down") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[detection]
movement_threshold = 0.05
target_height = -1
target_fps = 0

[workers]
count = 0
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Detection.MovementThreshold != 0.05 {
		t.Fatalf("unexpected threshold: %v", cfg.Detection.MovementThreshold)
	}
	if cfg.Detection.TargetHeight != 0 || cfg.Detection.TargetFPS != 0 {
		t.Fatalf("negative/zero overrides should normalize to disabled: %+v", cfg.Detection)
	}
	if cfg.Workers.Count != 4 {
		t.Fatalf("zero worker count should fall back to default, got %d", cfg.Workers.Count)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative threshold",
			mutate: func(c *config.Config) { c.Detection.MovementThreshold = -1 },
			want:   "movement_threshold",
		},
		{
			name:   "zero min moving frames",
			mutate: func(c *config.Config) { c.Detection.MinMovingFrames = 0 },
			want:   "min_moving_frames",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "negative buffer",
			mutate: func(c *config.Config) { c.Compile.BufferAfterSeconds = -0.5 },
			want:   "buffer_after_seconds",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = "console"
			cfg.Logging.Level = "info"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(dir, "uploads")
	cfg.Paths.ProcessingDir = filepath.Join(dir, "processing")
	cfg.Paths.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, created := range []string{cfg.Paths.UploadDir, cfg.Paths.ProcessingDir, cfg.Paths.DownloadDir, cfg.Paths.LogDir} {
		info, err := os.Stat(created)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", created, err)
		}
	}
}

func TestSampleConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
