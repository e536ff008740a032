package testsupport

import (
	"context"
	"testing"

	"reelcut/internal/config"
	"reelcut/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a job with one queued item per filename for tests.
func NewJob(t testing.TB, store *jobstore.Store, jobID string, filenames ...string) *jobstore.Job {
	t.Helper()

	items := make([]jobstore.Item, 0, len(filenames))
	for i, name := range filenames {
		items = append(items, jobstore.Item{
			FileID:   testFileID(i),
			Filename: name,
		})
	}
	job, err := store.Create(context.Background(), jobID, items)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

func testFileID(i int) string {
	const digits = "0123456789abcdef"
	return "00000000-0000-4000-8000-00000000000" + string(digits[i%16])
}
