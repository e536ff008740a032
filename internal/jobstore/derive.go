package jobstore

import "fmt"

// DeriveStatus computes the aggregate job status and message from the item
// set. It is pure, total, and evaluated top to bottom: the first matching
// rule wins, so a fully completed batch never reads as processing.
func DeriveStatus(items []Item) (Status, string) {
	if len(items) == 0 {
		return StatusFailed, "No files provided."
	}

	total := len(items)
	var completed, failed, processing, queued int
	for _, item := range items {
		switch item.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		case StatusProcessing:
			processing++
		default:
			queued++
		}
	}

	switch {
	case completed == total:
		return StatusCompleted, fmt.Sprintf("All files completed (%d/%d).", completed, total)
	case failed > 0 && processing == 0 && queued == 0:
		return StatusFailed, fmt.Sprintf("%d file(s) failed (%d/%d succeeded).", failed, completed, total)
	case processing > 0:
		return StatusProcessing, fmt.Sprintf("Processing %d/%d. Completed %d.", processing, total, completed)
	default:
		return StatusQueued, fmt.Sprintf("Waiting to process %d/%d.", queued, total)
	}
}
