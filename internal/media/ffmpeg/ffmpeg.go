// Package ffmpeg wraps the ffmpeg command line for container normalization
// and highlight compilation.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Option configures an ffmpeg-backed component.
type Option func(*options)

type options struct {
	binary string
}

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(o *options) {
		if binary != "" {
			o.binary = binary
		}
	}
}

func buildOptions(opts []Option) options {
	resolved := options{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

// run executes ffmpeg and returns an error carrying the tool's stderr output
// verbatim so callers can surface the real failure cause.
func run(ctx context.Context, binary string, args ...string) error {
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			return fmt.Errorf("%s: %w", binary, err)
		}
		return fmt.Errorf("%s: %w: %s", binary, err, detail)
	}
	return nil
}
