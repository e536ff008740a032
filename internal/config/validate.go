package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateCompile(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.ProcessingDir == "" {
		return errors.New("paths.processing_dir must be set")
	}
	if c.Paths.DownloadDir == "" {
		return errors.New("paths.download_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.MovementThreshold < 0 {
		return errors.New("detection.movement_threshold must not be negative")
	}
	if c.Detection.MinMovingFrames <= 0 {
		return errors.New("detection.min_moving_frames must be positive")
	}
	if c.Detection.MaxStationaryFrames <= 0 {
		return errors.New("detection.max_stationary_frames must be positive")
	}
	return nil
}

func (c *Config) validateCompile() error {
	if c.Compile.BufferBeforeSeconds < 0 {
		return errors.New("compile.buffer_before_seconds must not be negative")
	}
	if c.Compile.BufferAfterSeconds < 0 {
		return errors.New("compile.buffer_after_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
