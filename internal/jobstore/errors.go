package jobstore

import "errors"

var (
	// ErrJobExists reports a Create with a job id already on record. Job
	// ids are generated UUIDs, so hitting this indicates a caller bug.
	ErrJobExists = errors.New("job already exists")
	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrItemNotFound reports a file id absent from an existing job.
	ErrItemNotFound = errors.New("item not found in job")
	// ErrItemFinal reports an attempted status change on an item already
	// in a terminal state. Transitions are monotonic.
	ErrItemFinal = errors.New("item already in terminal state")
)
