package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures from ffmpeg, ffprobe, or the pose
	// sidecar. The tool's diagnostic is surfaced verbatim to the item.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks bad input fatal to one file only, such as an
	// unreadable frame rate.
	ErrValidation = errors.New("validation error")
	// ErrNoContent marks the expected empty outcome: nothing moved enough
	// to produce segments or windows.
	ErrNoContent = errors.New("no content detected")
	// ErrNotFound marks unknown job or file identifiers at the query
	// boundary.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures worth retrying at a higher level.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error that carries stage context while tagging it with the
// provided marker for classification via errors.Is. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
