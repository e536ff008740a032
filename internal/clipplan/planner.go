// Package clipplan converts detected motion segments into the padded,
// clamped extraction windows that get cut from the source video.
package clipplan

import "reelcut/internal/segment"

// Window is a time range to extract from the source, in seconds.
type Window struct {
	Start float64
	End   float64
}

// MinWindowSeconds is the shortest window worth cutting; anything shorter
// after clamping is dropped.
const MinWindowSeconds = 1.0

// Plan pads each segment by the given buffers, clamps the result to the video
// bounds, and drops windows shorter than MinWindowSeconds. Successive windows
// whose padding would overlap are clamped to begin where the previous one
// ends, so the output is sorted and pairwise non-overlapping. An empty result
// means no plannable content, which is the same non-error outcome as an empty
// segment list.
func Plan(segments []segment.Segment, videoDuration, bufferBefore, bufferAfter float64) []Window {
	windows := make([]Window, 0, len(segments))
	prevEnd := 0.0
	for _, seg := range segments {
		start := seg.Start - bufferBefore
		if start < 0 {
			start = 0
		}
		if start < prevEnd {
			start = prevEnd
		}
		end := seg.End + bufferAfter
		if end > videoDuration {
			end = videoDuration
		}
		if end-start < MinWindowSeconds {
			continue
		}
		windows = append(windows, Window{Start: start, End: end})
		prevEnd = end
	}
	if len(windows) == 0 {
		return nil
	}
	return windows
}
