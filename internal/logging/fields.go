package logging

// Standard attribute keys shared across components so console output can
// group related records.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldFileID    = "file_id"
	FieldStage     = "stage"
)
