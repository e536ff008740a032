package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NormalizeOptions carries optional output overrides. Zero values keep the
// source dimensions and frame rate.
type NormalizeOptions struct {
	TargetHeight int
	TargetFPS    float64
}

// Normalizer rewrites uploads into a decodable mp4 container. Inputs that are
// already mp4 and need no downscale or downsample pass through untouched.
type Normalizer struct {
	binary string
}

// NewNormalizer constructs a Normalizer using defaults.
func NewNormalizer(opts ...Option) *Normalizer {
	resolved := buildOptions(opts)
	return &Normalizer{binary: resolved.binary}
}

// Normalize returns a path to an mp4 rendition of inputPath, transcoding into
// outputDir when required. The returned path is the input itself when no work
// is needed.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputDir, fileID string, opts NormalizeOptions) (string, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return "", errors.New("input path required")
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return "", errors.New("output directory required")
	}

	if opts.TargetHeight < 0 {
		opts.TargetHeight = 0
	}
	if opts.TargetFPS < 0 {
		opts.TargetFPS = 0
	}

	needsTranscode := !strings.EqualFold(filepath.Ext(inputPath), ".mp4") ||
		opts.TargetHeight > 0 || opts.TargetFPS > 0
	if !needsTranscode {
		return inputPath, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure processing directory: %w", err)
	}

	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	outputPath := filepath.Join(outputDir, stem+"_"+fileID+".mp4")

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-analyzeduration", "100M", "-probesize", "100M",
		"-i", inputPath,
		"-ignore_unknown",
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-vf", videoFilter(opts),
		"-c:a", "aac",
		"-movflags", "+faststart",
		outputPath,
	}
	if err := run(ctx, n.binary, args...); err != nil {
		return "", err
	}
	return outputPath, nil
}

func videoFilter(opts NormalizeOptions) string {
	filters := make([]string, 0, 2)
	if opts.TargetHeight > 0 {
		// Encoders reject odd dimensions.
		evenHeight := opts.TargetHeight
		if evenHeight%2 != 0 {
			evenHeight--
			if evenHeight < 2 {
				evenHeight = 2
			}
		}
		filters = append(filters, "scale=-2:"+strconv.Itoa(evenHeight))
	} else {
		filters = append(filters, "scale=trunc(iw/2)*2:trunc(ih/2)*2")
	}
	if opts.TargetFPS > 0 {
		filters = append(filters, "fps="+strconv.FormatFloat(opts.TargetFPS, 'f', -1, 64))
	}
	return strings.Join(filters, ",")
}
