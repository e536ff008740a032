package api

// ErrorResponse is the JSON error envelope returned by all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

// UploadItemResponse identifies one accepted file within a batch.
type UploadItemResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// UploadResponse is returned by the upload endpoints. Clients poll the
// status endpoint with the returned job id.
type UploadResponse struct {
	JobID string               `json:"job_id"`
	Items []UploadItemResponse `json:"items"`
}
