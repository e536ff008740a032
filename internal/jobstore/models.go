package jobstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an item, and by derivation of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is one file's processing record within a batch job. Identity is
// (job_id, file_id); items are never deleted and keep their terminal state
// for the lifetime of the job record.
type Item struct {
	FileID      string    `json:"file_id"`
	Filename    string    `json:"filename"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	DownloadURL string    `json:"download_url,omitempty"`
	ResultPath  string    `json:"result_path,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Job is the aggregate persisted per batch. Status and Message are derived
// from Items and never set directly by callers.
type Job struct {
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Item returns the item with the given file id, or nil.
func (j *Job) Item(fileID string) *Item {
	for i := range j.Items {
		if j.Items[i].FileID == fileID {
			return &j.Items[i]
		}
	}
	return nil
}

// AllItemsTerminal reports whether every item has reached completed or
// failed. False for jobs without items.
func (j *Job) AllItemsTerminal() bool {
	if len(j.Items) == 0 {
		return false
	}
	for _, item := range j.Items {
		if !item.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// ItemPatch is a merge patch for one item: nil fields are left untouched, so
// every caller states exactly which fields it intends to change.
type ItemPatch struct {
	Status      *Status
	Message     *string
	DownloadURL *string
	ResultPath  *string
}

// JobPatch is a merge patch at the job level. Status is deliberately absent:
// it is always recomputed from the item set. Replacing Items wholesale
// triggers the same recomputation.
type JobPatch struct {
	Message *string
	Items   *[]Item
}

// StatusPtr is a convenience for building patches.
func StatusPtr(s Status) *Status { return &s }

// StringPtr is a convenience for building patches.
func StringPtr(s string) *string { return &s }
