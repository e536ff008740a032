package segment

import (
	"errors"
	"fmt"
)

// Signal is one frame's observation from the pose source.
// Scored is false when no displacement could be computed for this frame,
// which covers the first present frame and any frame following an absence.
type Signal struct {
	Present bool
	Score   float64
	Scored  bool
}

// Segment is a half-open time range of sustained movement, in seconds.
type Segment struct {
	Start float64
	End   float64
}

// Params tunes the detection state machine.
type Params struct {
	// MovementThreshold is the minimum movement score for a frame to count
	// as moving.
	MovementThreshold float64
	// MinMovingFrames is the run of consecutive moving frames required
	// before a segment opens.
	MinMovingFrames int
	// MaxStationaryFrames is the run of consecutive non-moving frames
	// tolerated before an open segment closes.
	MaxStationaryFrames int
	// MergeGap merges adjacent segments whose gap is below this many
	// seconds. Zero selects DefaultMergeGap.
	MergeGap float64
}

// DefaultMergeGap is the merge threshold applied when Params.MergeGap is zero.
const DefaultMergeGap = 1.0

func (p Params) mergeGap() float64 {
	if p.MergeGap <= 0 {
		return DefaultMergeGap
	}
	return p.MergeGap
}

func (p Params) validate() error {
	if p.MinMovingFrames <= 0 {
		return errors.New("min moving frames must be positive")
	}
	if p.MaxStationaryFrames <= 0 {
		return errors.New("max stationary frames must be positive")
	}
	return nil
}

type detectorState int

const (
	stateIdle detectorState = iota
	stateAccumulating
	stateOpen
)

// Detector consumes one video's frame signals in order and accumulates raw
// segments. Feed every frame exactly once through Observe, then call Finish.
type Detector struct {
	fps    float64
	params Params

	state           detectorState
	frameIdx        int
	movingFrames    int
	stationary      int
	runStart        float64
	segmentStart    float64
	segments        []Segment
}

// NewDetector builds a detector for a stream at the given frame rate.
// A non-positive fps is a fatal input error: frame timestamps cannot be
// derived from it.
func NewDetector(fps float64, params Params) (*Detector, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("unable to derive timestamps: fps %v is not positive", fps)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Detector{fps: fps, params: params}, nil
}

// Observe feeds the next frame signal into the state machine.
func (d *Detector) Observe(sig Signal) {
	currentTime := float64(d.frameIdx) / d.fps
	d.frameIdx++

	moving := sig.Present && sig.Scored && sig.Score >= d.params.MovementThreshold
	if moving {
		d.stationary = 0
		d.movingFrames++
		if d.movingFrames == 1 {
			d.runStart = currentTime
		}
		switch d.state {
		case stateIdle:
			d.state = stateAccumulating
			fallthrough
		case stateAccumulating:
			if d.movingFrames >= d.params.MinMovingFrames {
				// Backdate to the first frame of the run, not the
				// frame that confirmed the threshold.
				d.segmentStart = d.runStart
				d.state = stateOpen
			}
		case stateOpen:
		}
		return
	}

	d.movingFrames = 0
	switch d.state {
	case stateAccumulating:
		d.state = stateIdle
	case stateOpen:
		d.stationary++
		if d.stationary >= d.params.MaxStationaryFrames {
			d.segments = append(d.segments, Segment{Start: d.segmentStart, End: currentTime})
			d.state = stateIdle
			d.stationary = 0
		}
	}
}

// FrameCount reports how many frames have been observed so far.
func (d *Detector) FrameCount() int {
	return d.frameIdx
}

// Finish closes any open segment at the stream's end and returns the merged
// segment list. The duration argument bounds the final segment; when it is
// not positive the duration implied by the observed frame count is used.
// An empty result is the normal "nothing interesting happened" outcome.
func (d *Detector) Finish(duration float64) []Segment {
	if duration <= 0 {
		duration = float64(d.frameIdx) / d.fps
	}
	if d.state == stateOpen {
		d.segments = append(d.segments, Segment{Start: d.segmentStart, End: duration})
		d.state = stateIdle
	}
	return Merge(d.segments, d.params.mergeGap())
}

// Detect runs the full state machine over a materialized signal stream.
// Streaming callers construct a Detector directly and feed Observe per frame.
func Detect(signals []Signal, fps, duration float64, params Params) ([]Segment, error) {
	detector, err := NewDetector(fps, params)
	if err != nil {
		return nil, err
	}
	for _, sig := range signals {
		detector.Observe(sig)
	}
	return detector.Finish(duration), nil
}
