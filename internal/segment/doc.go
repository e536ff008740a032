// Package segment turns a per-frame human presence/movement signal into a
// clean list of motion time ranges.
//
// The Detector is a single-pass finite-state machine over the frame stream: a
// run of at least MinMovingFrames consecutive moving frames opens a segment
// (backdated to the first frame of the run), and MaxStationaryFrames
// consecutive non-moving frames close it. A post pass merges segments whose
// gap falls under MergeGap. The package performs no I/O and holds no shared
// state; one Detector serves exactly one video.
package segment
