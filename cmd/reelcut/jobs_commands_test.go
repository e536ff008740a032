package main

import (
	"context"
	"encoding/json"
	"testing"

	"reelcut/internal/jobstore"
	"reelcut/internal/testsupport"
)

func TestStatusRendersJob(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, "job-cli-1", "match.mp4", "training.mov")

	out, _, err := runCLI(t, []string{"status", job.JobID}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, job.JobID)
	requireContains(t, out, "match.mp4")
	requireContains(t, out, "training.mov")
	requireContains(t, out, "queued")
}

func TestStatusJSONRoundTrips(t *testing.T) {
	env := setupCLITestEnv(t)
	job := testsupport.NewJob(t, env.store, "job-cli-2", "clip.mp4")

	if _, err := env.store.UpdateItem(context.Background(), job.JobID, job.Items[0].FileID, jobstore.ItemPatch{
		Status:  jobstore.StatusPtr(jobstore.StatusCompleted),
		Message: jobstore.StringPtr("Processing complete!"),
	}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	out, _, err := runCLI(t, []string{"status", job.JobID, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}

	var decoded jobstore.Job
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode status JSON: %v", err)
	}
	if decoded.JobID != job.JobID {
		t.Fatalf("job id = %q, want %q", decoded.JobID, job.JobID)
	}
	if decoded.Status != jobstore.StatusCompleted {
		t.Fatalf("status = %q, want completed", decoded.Status)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].Message != "Processing complete!" {
		t.Fatalf("unexpected items: %+v", decoded.Items)
	}
}

func TestStatusUnknownJobFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"status", "missing-job"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
	requireContains(t, err.Error(), "not found")
}

func TestJobsListsAllJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	first := testsupport.NewJob(t, env.store, "job-list-1", "a.mp4")
	second := testsupport.NewJob(t, env.store, "job-list-2", "b.mp4", "c.mp4")

	out, _, err := runCLI(t, []string{"jobs"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, first.JobID)
	requireContains(t, out, second.JobID)
}

func TestJobsEmptyStore(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No jobs recorded")
}
