package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reelcut/internal/clipplan"
)

// Compiler cuts extraction windows from a source video and concatenates them
// into a single mp4 highlight reel.
type Compiler struct {
	binary string
}

// NewCompiler constructs a Compiler using defaults.
func NewCompiler(opts ...Option) *Compiler {
	resolved := buildOptions(opts)
	return &Compiler{binary: resolved.binary}
}

// Compile trims each window from sourcePath and joins them at outputPath.
// An empty window list produces no output and returns an empty path.
func (c *Compiler) Compile(ctx context.Context, sourcePath string, windows []clipplan.Window, outputPath string) (string, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return "", errors.New("source path required")
	}
	outputPath = strings.TrimSpace(outputPath)
	if outputPath == "" {
		return "", errors.New("output path required")
	}
	if len(windows) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}

	workDir, err := os.MkdirTemp(filepath.Dir(outputPath), "compile-")
	if err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	parts := make([]string, 0, len(windows))
	for i, window := range windows {
		partPath := filepath.Join(workDir, fmt.Sprintf("part_%03d.mp4", i))
		args := []string{
			"-y", "-hide_banner", "-loglevel", "error",
			"-ss", formatSeconds(window.Start),
			"-to", formatSeconds(window.End),
			"-i", sourcePath,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-c:a", "aac",
			partPath,
		}
		if err := run(ctx, c.binary, args...); err != nil {
			return "", err
		}
		parts = append(parts, partPath)
	}

	listPath := filepath.Join(workDir, "concat.txt")
	if err := writeConcatList(listPath, parts); err != nil {
		return "", err
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	}
	if err := run(ctx, c.binary, args...); err != nil {
		return "", err
	}
	return outputPath, nil
}

func writeConcatList(path string, parts []string) error {
	var builder strings.Builder
	for _, part := range parts {
		builder.WriteString("file '")
		builder.WriteString(part)
		builder.WriteString("'\n")
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
