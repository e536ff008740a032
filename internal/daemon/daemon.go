// Package daemon assembles the worker pool, the HTTP API, and the stale-item
// reclaimer into a single lifecycle with flock-based locking to prevent
// multiple instances from sharing one data directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelcut/internal/api"
	"reelcut/internal/config"
	"reelcut/internal/dispatch"
	"reelcut/internal/jobstore"
	"reelcut/internal/logging"
	"reelcut/internal/media/ffmpeg"
	"reelcut/internal/services/pose"
	"reelcut/internal/task"
)

// Daemon coordinates background processing and the HTTP API.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *jobstore.Store
	dispatcher *dispatch.Dispatcher
	server     *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	serveErr chan error
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := jobstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	normalizer := ffmpeg.NewNormalizer(ffmpeg.WithBinary(cfg.Tools.FFmpeg))
	compiler := ffmpeg.NewCompiler(ffmpeg.WithBinary(cfg.Tools.FFmpeg))
	frames := pose.NewCLI(pose.WithBinary(cfg.Tools.Pose))
	runner := task.NewRunner(cfg, store, normalizer, frames, compiler, logger)
	dispatcher := dispatch.New(cfg, store, runner, logger)

	server := api.NewServer(api.ServerConfig{
		Config:     cfg,
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
		StartTime:  time.Now(),
		Version:    "0.1.0",
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "reelcutd.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		dispatcher: dispatcher,
		server:     server,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
		serveErr:   make(chan error, 1),
	}, nil
}

// Start acquires the instance lock, launches the worker pool, the API
// server, and the reclamation loop. It does not block.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelcut daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.dispatcher.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start dispatcher: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.serveErr <- d.server.Start()
	}()

	if d.cfg.Workers.StaleAfterSeconds > 0 {
		d.wg.Add(1)
		go d.reclaimLoop(runCtx)
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Wait blocks until the HTTP server exits, returning its error.
func (d *Daemon) Wait() error {
	return <-d.serveErr
}

// Stop shuts everything down in dependency order and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("http shutdown", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.dispatcher.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the HTTP server's bound address.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Store exposes the job store for inspection tooling.
func (d *Daemon) Store() *jobstore.Store {
	return d.store
}

// reclaimLoop periodically fails items stuck in processing longer than the
// configured staleness cutoff, covering workers that died mid-file.
func (d *Daemon) reclaimLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Workers.ReclaimIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	staleAfter := time.Duration(d.cfg.Workers.StaleAfterSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-staleAfter)
			reclaimed, err := d.store.ReclaimStale(ctx, cutoff)
			if err != nil {
				d.logger.Warn("reclaim stale items", logging.Error(err))
				continue
			}
			if reclaimed > 0 {
				d.logger.Info("reclaimed stale items", logging.Int("count", reclaimed))
			}
		}
	}
}
