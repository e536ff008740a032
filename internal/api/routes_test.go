package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelcut/internal/api"
	"reelcut/internal/config"
	"reelcut/internal/dispatch"
	"reelcut/internal/jobstore"
	"reelcut/internal/logging"
	"reelcut/internal/testsupport"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, string, string, string, string) {}

type testServer struct {
	cfg     *config.Config
	store   *jobstore.Store
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d := dispatch.New(cfg, store, noopRunner{}, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start dispatcher: %v", err)
	}
	t.Cleanup(d.Stop)

	handler := api.NewRouter(api.ServerConfig{
		Config:     cfg,
		Store:      store,
		Dispatcher: d,
		Logger:     logging.NewNop(),
		StartTime:  time.Now(),
		Version:    "test",
	})
	return &testServer{cfg: cfg, store: store, handler: handler}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadSchedulesBatch(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{
		"match.mp4":   "first",
		"warmup.mkv":  "second",
		"another.mov": "third",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload/batch", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp api.UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected a job id")
	}
	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(resp.Items))
	}

	job, err := ts.store.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != jobstore.StatusQueued {
		t.Fatalf("expected queued job, got %s", job.Status)
	}
	for _, item := range resp.Items {
		stored := filepath.Join(ts.cfg.JobUploadDir(resp.JobID), item.FileID+"_"+item.Filename)
		if _, err := os.Stat(stored); err != nil {
			t.Fatalf("expected stored upload %s: %v", stored, err)
		}
	}
}

func TestUploadRejectsEmptyBatch(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No files uploaded") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status/no-such-job", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Job not found") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestStatusReturnsJobSnapshot(t *testing.T) {
	ts := newTestServer(t)
	job := testsupport.NewJob(t, ts.store, "job-status", "clip.mp4")

	req := httptest.NewRequest(http.MethodGet, "/api/status/"+job.JobID, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snapshot jobstore.Job
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.JobID != job.JobID {
		t.Fatalf("expected job %s, got %s", job.JobID, snapshot.JobID)
	}
	if len(snapshot.Items) != 1 || snapshot.Items[0].Filename != "clip.mp4" {
		t.Fatalf("unexpected items %+v", snapshot.Items)
	}
	if snapshot.Items[0].Status != jobstore.StatusQueued {
		t.Fatalf("expected queued item, got %s", snapshot.Items[0].Status)
	}
}

func TestDownloadNotReady(t *testing.T) {
	ts := newTestServer(t)
	job := testsupport.NewJob(t, ts.store, "job-notready", "clip.mp4")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.JobID+"/"+job.Items[0].FileID, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Video not ready") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestDownloadUnknownFile(t *testing.T) {
	ts := newTestServer(t)
	job := testsupport.NewJob(t, ts.store, "job-nofile", "clip.mp4")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.JobID+"/ghost", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "File not found in job") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func completeItem(t *testing.T, ts *testServer, jobID, fileID, content string) string {
	t.Helper()
	resultPath := filepath.Join(ts.cfg.JobDownloadDir(jobID), fileID+".mp4")
	testsupport.WriteFile(t, resultPath, 1)
	if err := os.WriteFile(resultPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write result: %v", err)
	}
	_, err := ts.store.UpdateItem(context.Background(), jobID, fileID, jobstore.ItemPatch{
		Status:      jobstore.StatusPtr(jobstore.StatusCompleted),
		Message:     jobstore.StringPtr("Processing complete!"),
		DownloadURL: jobstore.StringPtr("/api/download/" + jobID + "/" + fileID),
		ResultPath:  jobstore.StringPtr(resultPath),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	return resultPath
}

func TestDownloadCompletedFile(t *testing.T) {
	ts := newTestServer(t)
	job := testsupport.NewJob(t, ts.store, "job-done", "clip.mp4")
	fileID := job.Items[0].FileID
	completeItem(t, ts, job.JobID, fileID, "highlight-bytes")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.JobID+"/"+fileID, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got, _ := io.ReadAll(rec.Body); string(got) != "highlight-bytes" {
		t.Fatalf("unexpected payload %q", got)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "highlight_clip.mp4") {
		t.Fatalf("unexpected disposition %q", disposition)
	}
}

func TestDownloadFirstCompleted(t *testing.T) {
	ts := newTestServer(t)
	job := testsupport.NewJob(t, ts.store, "job-first", "a.mp4", "b.mp4")
	completeItem(t, ts, job.JobID, job.Items[1].FileID, "second-file")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.JobID, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got, _ := io.ReadAll(rec.Body); string(got) != "second-file" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestDownloadFirstWithoutCompletions(t *testing.T) {
	ts := newTestServer(t)
	job := testsupport.NewJob(t, ts.store, "job-none", "a.mp4")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.JobID, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No completed videos") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health api.HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("unexpected health %+v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}
