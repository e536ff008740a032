package pose

import (
	"math"

	"reelcut/internal/segment"
)

// Scorer converts consecutive frames into movement signals. A frame's score
// is the mean euclidean displacement of its landmarks against the previous
// frame; the first present frame and any frame after an absence carry no
// score since there is nothing to diff against.
type Scorer struct {
	previous []Landmark
}

// NewScorer returns a scorer ready for the first frame of a stream.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score consumes the next frame and returns its movement signal.
func (s *Scorer) Score(frame Frame) segment.Signal {
	if frame.Landmarks == nil {
		s.previous = nil
		return segment.Signal{}
	}
	previous := s.previous
	s.previous = frame.Landmarks
	if previous == nil {
		return segment.Signal{Present: true}
	}
	return segment.Signal{
		Present: true,
		Score:   averageDisplacement(frame.Landmarks, previous),
		Scored:  true,
	}
}

// Reset clears displacement history, as at the start of a new stream.
func (s *Scorer) Reset() {
	s.previous = nil
}

func averageDisplacement(current, previous []Landmark) float64 {
	n := len(current)
	if len(previous) < n {
		n = len(previous)
	}
	if n == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		dx := current[i].X - previous[i].X
		dy := current[i].Y - previous[i].Y
		dz := current[i].Z - previous[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total / float64(n)
}
