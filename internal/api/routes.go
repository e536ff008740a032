package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"reelcut/internal/dispatch"
	"reelcut/internal/jobstore"
	"reelcut/internal/logging"
)

// NewRouter assembles the full HTTP surface: uploads, status polling,
// downloads, static assets, and health.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Post("/api/upload", uploadHandler(cfg))
	r.Post("/api/upload/batch", uploadHandler(cfg))
	r.Get("/api/status/{job_id}", statusHandler(cfg))
	r.Get("/api/download/{job_id}/{file_id}", downloadFileHandler(cfg))
	r.Get("/api/download/{job_id}", downloadFirstHandler(cfg))

	staticDir := cfg.Config.Paths.StaticDir
	if staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
		})
	}

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

// uploadHandler accepts one or more multipart file parts, streams each to the
// job's upload directory in configured chunk sizes, then schedules the batch.
func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "expected multipart upload", "BAD_REQUEST")
			return
		}

		jobID := dispatch.NewJobID()
		uploadDir := cfg.Config.JobUploadDir(jobID)
		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			cfg.Logger.Error("create upload directory", logging.Error(err))
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}

		uploads, err := saveUploads(reader, uploadDir, cfg.Config.Workers.UploadChunkBytes)
		if err != nil {
			cfg.Logger.Error("store upload", logging.Error(err), logging.String(logging.FieldJobID, jobID))
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}
		if len(uploads) == 0 {
			WriteError(w, http.StatusBadRequest, "No files uploaded", "BAD_REQUEST")
			return
		}

		if _, err := cfg.Dispatcher.CreateJob(r.Context(), jobID, uploads); err != nil {
			cfg.Logger.Error("schedule job", logging.Error(err), logging.String(logging.FieldJobID, jobID))
			WriteError(w, http.StatusInternalServerError, "failed to schedule processing", "INTERNAL_ERROR")
			return
		}

		resp := UploadResponse{JobID: jobID, Items: make([]UploadItemResponse, 0, len(uploads))}
		for _, upload := range uploads {
			resp.Items = append(resp.Items, UploadItemResponse{FileID: upload.FileID, Filename: upload.Filename})
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func saveUploads(reader *multipart.Reader, uploadDir string, chunkBytes int) ([]dispatch.Upload, error) {
	if chunkBytes <= 0 {
		chunkBytes = 1 << 20
	}
	buf := make([]byte, chunkBytes)

	var uploads []dispatch.Upload
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		fileID := dispatch.NewFileID()
		filename := filepath.Base(part.FileName())
		if filename == "." || filename == string(filepath.Separator) {
			filename = "upload"
		}
		destination := filepath.Join(uploadDir, fileID+"_"+filename)

		dst, err := os.Create(destination)
		if err != nil {
			part.Close()
			return nil, err
		}
		if _, err := io.CopyBuffer(dst, part, buf); err != nil {
			dst.Close()
			part.Close()
			return nil, err
		}
		if err := dst.Close(); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()

		uploads = append(uploads, dispatch.Upload{
			FileID:     fileID,
			Filename:   filename,
			UploadPath: destination,
		})
	}
	return uploads, nil
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")
		job, err := cfg.Store.Get(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, jobstore.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "Job not found", "NOT_FOUND")
				return
			}
			cfg.Logger.Error("load job", logging.Error(err), logging.String(logging.FieldJobID, jobID))
			WriteError(w, http.StatusInternalServerError, "failed to load job", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func downloadFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")
		fileID := chi.URLParam(r, "file_id")

		job, err := cfg.Store.Get(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, jobstore.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "Job not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to load job", "INTERNAL_ERROR")
			return
		}
		item := job.Item(fileID)
		if item == nil {
			WriteError(w, http.StatusNotFound, "File not found in job", "NOT_FOUND")
			return
		}
		serveResult(w, r, item)
	}
}

// downloadFirstHandler serves the first completed item of a batch, kept for
// clients that predate per-file downloads.
func downloadFirstHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "job_id")

		job, err := cfg.Store.Get(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, jobstore.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "Job not found", "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to load job", "INTERNAL_ERROR")
			return
		}
		for i := range job.Items {
			item := &job.Items[i]
			if item.Status == jobstore.StatusCompleted && item.ResultPath != "" {
				serveResult(w, r, item)
				return
			}
		}
		WriteError(w, http.StatusBadRequest, "No completed videos", "NOT_READY")
	}
}

func serveResult(w http.ResponseWriter, r *http.Request, item *jobstore.Item) {
	if item.Status != jobstore.StatusCompleted || item.ResultPath == "" {
		WriteError(w, http.StatusBadRequest, "Video not ready", "NOT_READY")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="highlight_`+item.Filename+`"`)
	http.ServeFile(w, r, item.ResultPath)
}
