// Package pose streams per-frame human pose landmarks from the
// pose-landmarker sidecar and converts them into movement signals.
package pose
