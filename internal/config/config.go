package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir     string `toml:"upload_dir"`
	ProcessingDir string `toml:"processing_dir"`
	DownloadDir   string `toml:"download_dir"`
	StaticDir     string `toml:"static_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
}

// Detection tunes the motion segment detector and the pre-detection
// downscale applied by the container normalizer.
type Detection struct {
	// MovementThreshold is the minimum average landmark displacement per
	// frame to count as motion.
	MovementThreshold float64 `toml:"movement_threshold"`
	// MinMovingFrames is the run of moving frames required to open a segment.
	MinMovingFrames int `toml:"min_moving_frames"`
	// MaxStationaryFrames is the run of still frames allowed before a
	// segment closes.
	MaxStationaryFrames int `toml:"max_stationary_frames"`
	// MergeGapSeconds merges segments separated by less than this gap.
	MergeGapSeconds float64 `toml:"merge_gap_seconds"`
	// TargetHeight downscales input before detection; 0 keeps the source.
	TargetHeight int `toml:"target_height"`
	// TargetFPS downsamples input before detection; 0 keeps the source.
	TargetFPS float64 `toml:"target_fps"`
}

// Compile tunes how detected segments become extraction windows.
type Compile struct {
	BufferBeforeSeconds float64 `toml:"buffer_before_seconds"`
	BufferAfterSeconds  float64 `toml:"buffer_after_seconds"`
}

// Workers contains worker pool and upload handling settings.
type Workers struct {
	Count            int `toml:"count"`
	UploadChunkBytes int `toml:"upload_chunk_bytes"`
	// StaleAfterSeconds fails items whose processing worker stopped
	// reporting for this long. 0 disables reclamation.
	StaleAfterSeconds   int `toml:"stale_after_seconds"`
	ReclaimIntervalSecs int `toml:"reclaim_interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Pose    string `toml:"pose"`
}

// Config encapsulates all configuration values for reelcut.
//
// Configuration sections by subsystem:
//   - Paths: upload/processing/download directories, static assets, API bind
//   - Detection: segment detector thresholds and pre-detection downscaling
//   - Compile: clip padding applied around detected segments
//   - Workers: pool size, upload chunking, stale item reclamation
//   - Logging: log format and level
//   - Tools: external binary names (ffmpeg, ffprobe, pose sidecar)
type Config struct {
	Paths     Paths     `toml:"paths"`
	Detection Detection `toml:"detection"`
	Compile   Compile   `toml:"compile"`
	Workers   Workers   `toml:"workers"`
	Logging   Logging   `toml:"logging"`
	Tools     Tools     `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelcut/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("reelcut.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.ProcessingDir, c.Paths.DownloadDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobUploadDir returns the per-job directory raw uploads land in.
func (c *Config) JobUploadDir(jobID string) string {
	return filepath.Join(c.Paths.UploadDir, jobID)
}

// JobProcessingDir returns the per-job scratch workspace.
func (c *Config) JobProcessingDir(jobID string) string {
	return filepath.Join(c.Paths.ProcessingDir, jobID)
}

// JobDownloadDir returns the per-job directory compiled highlights land in.
func (c *Config) JobDownloadDir(jobID string) string {
	return filepath.Join(c.Paths.DownloadDir, jobID)
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
