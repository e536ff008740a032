// Package dispatch fans uploaded batches out to a bounded worker pool, one
// task per file.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"reelcut/internal/config"
	"reelcut/internal/jobstore"
	"reelcut/internal/logging"
)

// Runner executes one file's pipeline. Implemented by task.Runner.
type Runner interface {
	Run(ctx context.Context, jobID, fileID, uploadPath, filename string)
}

// Upload describes one stored upload awaiting processing.
type Upload struct {
	FileID     string
	Filename   string
	UploadPath string
}

type workItem struct {
	jobID      string
	fileID     string
	uploadPath string
	filename   string
}

// Dispatcher owns the worker pool. Start it once, feed it jobs through
// CreateJob, and Stop it to drain in-flight work.
type Dispatcher struct {
	cfg    *config.Config
	store  *jobstore.Store
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	queue   chan workItem
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New constructs a stopped Dispatcher.
func New(cfg *config.Config, store *jobstore.Store, runner Runner, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "dispatch"),
	}
}

// NewJobID mints a fresh job identifier.
func NewJobID() string { return uuid.NewString() }

// NewFileID mints a fresh file identifier.
func NewFileID() string { return uuid.NewString() }

// Start launches the worker pool. Calling Start twice is an error.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.New("dispatcher already started")
	}

	workers := d.cfg.Workers.Count
	if workers <= 0 {
		workers = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.queue = make(chan workItem, workers*16)
	d.started = true

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx)
	}
	d.logger.Info("worker pool started", logging.Int("workers", workers))
	return nil
}

// Stop closes the intake queue and waits for workers to finish their current
// items. Queued-but-unstarted items are left in their queued state for a later
// restart or reclamation.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	cancel := d.cancel
	queue := d.queue
	d.mu.Unlock()

	cancel()
	close(queue)
	d.wg.Wait()
	d.logger.Info("worker pool stopped")
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for item := range d.queue {
		if ctx.Err() != nil {
			return
		}
		d.runner.Run(ctx, item.jobID, item.fileID, item.uploadPath, item.filename)
	}
}

// CreateJob records the batch as queued items and schedules one task per
// upload. There is no ordering guarantee between files of one job.
func (d *Dispatcher) CreateJob(ctx context.Context, jobID string, uploads []Upload) (*jobstore.Job, error) {
	items := make([]jobstore.Item, 0, len(uploads))
	for _, upload := range uploads {
		items = append(items, jobstore.Item{
			FileID:   upload.FileID,
			Filename: upload.Filename,
		})
	}
	job, err := d.store.Create(ctx, jobID, items)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	started := d.started
	queue := d.queue
	d.mu.Unlock()
	if !started {
		return nil, errors.New("dispatcher not started")
	}

	for _, upload := range uploads {
		queue <- workItem{
			jobID:      jobID,
			fileID:     upload.FileID,
			uploadPath: upload.UploadPath,
			filename:   upload.Filename,
		}
	}
	d.logger.Info("job scheduled",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("files", len(uploads)),
	)
	return job, nil
}
