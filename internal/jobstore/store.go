package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelcut/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	// Pragmas ride the DSN so every pooled connection gets them. Applying
	// them with db.Exec configures only whichever connection serves that
	// call, leaving the rest of the pool with busy_timeout=0.
	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create persists a fresh job with the provided items. Item statuses default
// to queued; the aggregate status and message are derived before the first
// write so readers never observe an underived record.
func (s *Store) Create(ctx context.Context, jobID string, items []Item) (*Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("job id required")
	}

	now := time.Now().UTC()
	normalized := make([]Item, len(items))
	for i, item := range items {
		normalized[i] = item
		if normalized[i].Status == "" {
			normalized[i].Status = StatusQueued
		}
		if normalized[i].Message == "" {
			normalized[i].Message = "Queued"
		}
		normalized[i].UpdatedAt = now
	}

	job := &Job{
		JobID:     jobID,
		Items:     normalized,
		CreatedAt: now,
	}
	job.Status, job.Message = DeriveStatus(job.Items)

	document, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	timestamp := now.Format(time.RFC3339Nano)
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (job_id, document, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		jobID,
		string(document),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrJobExists, jobID)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Get fetches a job by identifier.
func (s *Store) Get(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns all jobs ordered by creation time, newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateItem applies a merge patch to one item and re-derives the aggregate
// status. The read-modify-write runs inside an immediate transaction with
// busy retry, so concurrent sibling updates serialize instead of losing
// writes. Status changes out of a terminal state are rejected.
func (s *Store) UpdateItem(ctx context.Context, jobID, fileID string, patch ItemPatch) (*Job, error) {
	return s.mutateJob(ctx, jobID, func(job *Job) error {
		item := job.Item(fileID)
		if item == nil {
			return fmt.Errorf("%w: %s", ErrItemNotFound, fileID)
		}
		if patch.Status != nil && item.Status.IsTerminal() && *patch.Status != item.Status {
			return fmt.Errorf("%w: %s is %s", ErrItemFinal, fileID, item.Status)
		}
		if patch.Status != nil {
			item.Status = *patch.Status
		}
		if patch.Message != nil {
			item.Message = *patch.Message
		}
		if patch.DownloadURL != nil {
			item.DownloadURL = *patch.DownloadURL
		}
		if patch.ResultPath != nil {
			item.ResultPath = *patch.ResultPath
		}
		item.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// UpdateJob applies a merge patch at the job level. Replacing the item set
// re-derives the aggregate just as item patches do; a bare message override
// is the one field not owned by the derivation.
func (s *Store) UpdateJob(ctx context.Context, jobID string, patch JobPatch) (*Job, error) {
	return s.mutateJobRaw(ctx, jobID, func(job *Job) {
		if patch.Items != nil {
			job.Items = append([]Item(nil), (*patch.Items)...)
			job.Status, job.Message = DeriveStatus(job.Items)
		}
		if patch.Message != nil {
			job.Message = *patch.Message
		}
	})
}

// ReclaimStale fails items stuck in processing whose last update predates
// the cutoff, so abandoned workers do not leave items in-flight forever.
// It returns the number of items failed.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, job := range jobs {
		stale := false
		for _, item := range job.Items {
			if item.Status == StatusProcessing && item.UpdatedAt.Before(cutoff) {
				stale = true
				break
			}
		}
		if !stale {
			continue
		}
		_, err := s.mutateJob(ctx, job.JobID, func(job *Job) error {
			for i := range job.Items {
				item := &job.Items[i]
				if item.Status == StatusProcessing && item.UpdatedAt.Before(cutoff) {
					item.Status = StatusFailed
					item.Message = "Processing timed out."
					item.UpdatedAt = time.Now().UTC()
					reclaimed++
				}
			}
			return nil
		})
		if err != nil {
			return reclaimed, err
		}
	}
	return reclaimed, nil
}

// mutateJob loads the job, applies mutate, re-derives the aggregate, and
// writes the document back, all inside one immediate transaction.
func (s *Store) mutateJob(ctx context.Context, jobID string, mutate func(*Job) error) (*Job, error) {
	var result *Job
	err := retryOnBusy(ctx, func() error {
		job, err := s.mutateOnce(ctx, jobID, func(job *Job) error {
			if err := mutate(job); err != nil {
				return err
			}
			job.Status, job.Message = DeriveStatus(job.Items)
			return nil
		})
		if err != nil {
			return err
		}
		result = job
		return nil
	})
	return result, err
}

func (s *Store) mutateJobRaw(ctx context.Context, jobID string, mutate func(*Job)) (*Job, error) {
	var result *Job
	err := retryOnBusy(ctx, func() error {
		job, err := s.mutateOnce(ctx, jobID, func(job *Job) error {
			mutate(job)
			return nil
		})
		if err != nil {
			return err
		}
		result = job
		return nil
	})
	return result, err
}

func (s *Store) mutateOnce(ctx context.Context, jobID string, mutate func(*Job) error) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Immediate mode takes the write lock up front so a concurrent sibling
	// cannot interleave between our read and our write.
	if _, err := tx.ExecContext(ctx, "UPDATE jobs SET updated_at = updated_at WHERE job_id = ?", jobID); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx, `SELECT document FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}

	if err := mutate(job); err != nil {
		return nil, err
	}

	document, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE jobs SET document = ?, updated_at = ? WHERE job_id = ?`,
		string(document),
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID,
	); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job update: %w", err)
	}
	return job, nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: jobs.job_id")
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var document string
	if err := scanner.Scan(&document); err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(document), &job); err != nil {
		return nil, fmt.Errorf("decode job document: %w", err)
	}
	return &job, nil
}
