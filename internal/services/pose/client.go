package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Landmark is one body point in normalized image coordinates.
type Landmark struct {
	X float64
	Y float64
	Z float64
}

// Frame is one decoded video frame's detection result. Landmarks is nil when
// no human was detected in the frame.
type Frame struct {
	Landmarks []Landmark
}

// Metadata describes the analyzed stream as reported by the sidecar header.
type Metadata struct {
	FPS        float64
	FrameCount int
}

// Client defines pose extraction behaviour.
type Client interface {
	Analyze(ctx context.Context, videoPath string, frame func(Frame)) (Metadata, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the pose-landmarker sidecar. The sidecar decodes the video and
// writes JSON lines on stdout: a header object with fps and frame_count,
// then one object per frame carrying landmark triplets or null.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "pose-landmarker"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Analyze runs the sidecar against videoPath, invoking frame for every
// decoded frame in order.
func (c *CLI) Analyze(ctx context.Context, videoPath string, frame func(Frame)) (Metadata, error) {
	videoPath = strings.TrimSpace(videoPath)
	if videoPath == "" {
		return Metadata{}, errors.New("video path required")
	}

	args := []string{"analyze", "--input", videoPath, "--json-lines"}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Metadata{}, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return Metadata{}, fmt.Errorf("start pose sidecar: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	meta := Metadata{}
	sawHeader := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !sawHeader {
			var header struct {
				FPS        float64 `json:"fps"`
				FrameCount int     `json:"frame_count"`
			}
			if err := json.Unmarshal(line, &header); err != nil {
				continue
			}
			meta = Metadata{FPS: header.FPS, FrameCount: header.FrameCount}
			sawHeader = true
			continue
		}
		var payload struct {
			Landmarks [][]float64 `json:"landmarks"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		if frame != nil {
			frame(Frame{Landmarks: toLandmarks(payload.Landmarks)})
		}
	}
	if err := scanner.Err(); err != nil {
		return Metadata{}, fmt.Errorf("read pose output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return Metadata{}, fmt.Errorf("pose sidecar failed: %w", err)
		}
		return Metadata{}, fmt.Errorf("pose sidecar failed: %w: %s", err, detail)
	}
	if !sawHeader {
		return Metadata{}, errors.New("pose sidecar emitted no header")
	}
	return meta, nil
}

func toLandmarks(raw [][]float64) []Landmark {
	if raw == nil {
		return nil
	}
	landmarks := make([]Landmark, 0, len(raw))
	for _, triplet := range raw {
		lm := Landmark{}
		if len(triplet) > 0 {
			lm.X = triplet[0]
		}
		if len(triplet) > 1 {
			lm.Y = triplet[1]
		}
		if len(triplet) > 2 {
			lm.Z = triplet[2]
		}
		landmarks = append(landmarks, lm)
	}
	return landmarks
}

var _ Client = (*CLI)(nil)
