package task

import (
	"context"

	"reelcut/internal/media/ffprobe"
)

// probeVideo is the ffprobe function used when the pose sidecar does not
// report a frame rate. It is a package-level variable so tests can override it.
var probeVideo = ffprobe.Inspect

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := probeVideo
	probeVideo = fn
	return func() {
		probeVideo = previous
	}
}
