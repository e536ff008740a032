// Package task runs the per-file highlight pipeline: normalize the upload,
// detect motion segments, plan extraction windows, and compile the reel.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"reelcut/internal/clipplan"
	"reelcut/internal/config"
	"reelcut/internal/fileutil"
	"reelcut/internal/jobstore"
	"reelcut/internal/logging"
	"reelcut/internal/media/ffmpeg"
	"reelcut/internal/segment"
	"reelcut/internal/services"
	"reelcut/internal/services/pose"
)

// Normalizer rewrites an upload into a decodable container.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputDir, fileID string, opts ffmpeg.NormalizeOptions) (string, error)
}

// FrameSource streams per-frame pose detections for a decodable video.
type FrameSource interface {
	Analyze(ctx context.Context, videoPath string, frame func(pose.Frame)) (pose.Metadata, error)
}

// Compiler cuts the planned windows and concatenates them into one file.
type Compiler interface {
	Compile(ctx context.Context, sourcePath string, windows []clipplan.Window, outputPath string) (string, error)
}

// Runner executes one item's pipeline and records progress on the job store.
// A Runner is safe for concurrent use; each Run call is independent.
type Runner struct {
	cfg        *config.Config
	store      *jobstore.Store
	normalizer Normalizer
	frames     FrameSource
	compiler   Compiler
	logger     *slog.Logger
}

// NewRunner wires a Runner from its collaborators. A nil logger disables
// logging.
func NewRunner(cfg *config.Config, store *jobstore.Store, normalizer Normalizer, frames FrameSource, compiler Compiler, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		store:      store,
		normalizer: normalizer,
		frames:     frames,
		compiler:   compiler,
		logger:     logging.NewComponentLogger(logger, "task"),
	}
}

// Run processes a single uploaded file. Failures of any kind are absorbed
// here and recorded as item failures so sibling tasks keep running.
func (r *Runner) Run(ctx context.Context, jobID, fileID, uploadPath, filename string) {
	logger := r.logger.With(
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldFileID, fileID),
	)

	var preparedPath string
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("task panicked", logging.Any("panic", rec))
			r.failItem(ctx, jobID, fileID, fmt.Sprintf("internal error: %v", rec), logger)
		}
		r.cleanup(ctx, jobID, uploadPath, preparedPath, logger)
	}()

	if err := r.process(ctx, jobID, fileID, uploadPath, filename, &preparedPath, logger); err != nil {
		logger.Error("task failed", logging.Error(err))
		r.failItem(ctx, jobID, fileID, err.Error(), logger)
	}
}

func (r *Runner) process(ctx context.Context, jobID, fileID, uploadPath, filename string, preparedPath *string, logger *slog.Logger) error {
	if err := r.updateItem(ctx, jobID, fileID, jobstore.ItemPatch{
		Status:  jobstore.StatusPtr(jobstore.StatusProcessing),
		Message: jobstore.StringPtr("Preparing video..."),
	}); err != nil {
		return err
	}

	processingDir := r.cfg.JobProcessingDir(jobID)
	downloadDir := r.cfg.JobDownloadDir(jobID)
	for _, dir := range []string{processingDir, downloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("work directory unavailable", logging.Error(err))
			r.failItem(ctx, jobID, fileID, err.Error(), logger)
			return nil
		}
	}

	logger.Info("preparing video", logging.String("filename", filename), logging.String(logging.FieldStage, "prepare"))
	prepared, err := r.normalizer.Normalize(ctx, uploadPath, processingDir, fileID, ffmpeg.NormalizeOptions{
		TargetHeight: r.cfg.Detection.TargetHeight,
		TargetFPS:    r.cfg.Detection.TargetFPS,
	})
	if err != nil {
		logger.Error("normalize failed", logging.Error(services.Wrap(services.ErrExternalTool, "task", "normalize", "", err)))
		r.failItem(ctx, jobID, fileID, err.Error(), logger)
		return nil
	}
	*preparedPath = prepared

	if err := r.updateItem(ctx, jobID, fileID, jobstore.ItemPatch{
		Message: jobstore.StringPtr("Detecting moving humans..."),
	}); err != nil {
		return err
	}

	segments, duration, err := r.detect(ctx, prepared, logger)
	if err != nil {
		logger.Error("detection failed", logging.Error(err))
		r.failItem(ctx, jobID, fileID, err.Error(), logger)
		return nil
	}
	if len(segments) == 0 {
		logger.Info("no motion segments found", logging.String(logging.FieldStage, "detect"))
		r.failItem(ctx, jobID, fileID, "No moving humans detected.", logger)
		return nil
	}

	if err := r.updateItem(ctx, jobID, fileID, jobstore.ItemPatch{
		Message: jobstore.StringPtr(fmt.Sprintf("Found %d segments. Compiling...", len(segments))),
	}); err != nil {
		return err
	}

	windows := clipplan.Plan(segments, duration, r.cfg.Compile.BufferBeforeSeconds, r.cfg.Compile.BufferAfterSeconds)
	if len(windows) == 0 {
		logger.Info("no windows survived planning", logging.String(logging.FieldStage, "compile"))
		r.failItem(ctx, jobID, fileID, "Failed to compile video.", logger)
		return nil
	}

	outputPath := filepath.Join(downloadDir, fileID+".mp4")
	logger.Info("compiling highlights",
		logging.Int("windows", len(windows)),
		logging.String(logging.FieldStage, "compile"),
	)
	resultPath, err := r.compiler.Compile(ctx, prepared, windows, outputPath)
	if err != nil {
		logger.Error("compile failed", logging.Error(services.Wrap(services.ErrExternalTool, "task", "compile", "", err)))
		r.failItem(ctx, jobID, fileID, err.Error(), logger)
		return nil
	}
	if resultPath == "" {
		r.failItem(ctx, jobID, fileID, "Failed to compile video.", logger)
		return nil
	}

	logger.Info("processing complete", logging.String("result", resultPath))
	return r.updateItem(ctx, jobID, fileID, jobstore.ItemPatch{
		Status:      jobstore.StatusPtr(jobstore.StatusCompleted),
		Message:     jobstore.StringPtr("Processing complete!"),
		DownloadURL: jobstore.StringPtr(fmt.Sprintf("/api/download/%s/%s", jobID, fileID)),
		ResultPath:  jobstore.StringPtr(resultPath),
	})
}

// detect streams pose frames into the segment detector and returns the merged
// segments plus the stream duration in seconds.
func (r *Runner) detect(ctx context.Context, videoPath string, logger *slog.Logger) ([]segment.Segment, float64, error) {
	scorer := pose.NewScorer()
	var signals []segment.Signal
	meta, err := r.frames.Analyze(ctx, videoPath, func(frame pose.Frame) {
		signals = append(signals, scorer.Score(frame))
	})
	if err != nil {
		return nil, 0, err
	}

	fps := meta.FPS
	if fps <= 0 {
		probed, probeErr := probeVideo(ctx, r.cfg.Tools.FFprobe, videoPath)
		if probeErr != nil {
			logger.Warn("ffprobe fallback failed", logging.Error(probeErr))
		} else {
			fps = probed.FrameRate()
		}
	}
	if fps <= 0 {
		return nil, 0, errors.New("Unable to read FPS from video.")
	}

	frameCount := len(signals)
	if meta.FrameCount > frameCount {
		frameCount = meta.FrameCount
	}
	duration := float64(frameCount) / fps

	segments, err := segment.Detect(signals, fps, duration, segment.Params{
		MovementThreshold:   r.cfg.Detection.MovementThreshold,
		MinMovingFrames:     r.cfg.Detection.MinMovingFrames,
		MaxStationaryFrames: r.cfg.Detection.MaxStationaryFrames,
		MergeGap:            r.cfg.Detection.MergeGapSeconds,
	})
	if err != nil {
		return nil, 0, err
	}
	logger.Info("detection finished",
		logging.Int("segments", len(segments)),
		logging.Int("frames", len(signals)),
		logging.Float64("fps", fps),
		logging.String(logging.FieldStage, "detect"),
	)
	return segments, duration, nil
}

func (r *Runner) updateItem(ctx context.Context, jobID, fileID string, patch jobstore.ItemPatch) error {
	if _, err := r.store.UpdateItem(ctx, jobID, fileID, patch); err != nil {
		return services.Wrap(services.ErrTransient, "task", "update item", "persist item progress", err)
	}
	return nil
}

// failItem marks the item failed, tolerating items that already reached a
// terminal state.
func (r *Runner) failItem(ctx context.Context, jobID, fileID, message string, logger *slog.Logger) {
	_, err := r.store.UpdateItem(ctx, jobID, fileID, jobstore.ItemPatch{
		Status:  jobstore.StatusPtr(jobstore.StatusFailed),
		Message: jobstore.StringPtr(message),
	})
	if err != nil && !errors.Is(err, jobstore.ErrItemFinal) {
		logger.Warn("failed to record item failure", logging.Error(err))
	}
}

// cleanup releases the raw upload and the scratch rendition, then removes the
// job-scoped directories once every item is terminal. All steps are
// best-effort and idempotent; racing finishers may attempt them redundantly.
func (r *Runner) cleanup(ctx context.Context, jobID, uploadPath, preparedPath string, logger *slog.Logger) {
	if err := fileutil.RemoveIfExists(uploadPath); err != nil {
		logger.Warn("failed to remove upload", logging.Error(err))
	}
	if preparedPath != "" && preparedPath != uploadPath {
		if err := fileutil.RemoveIfExists(preparedPath); err != nil {
			logger.Warn("failed to remove scratch file", logging.Error(err))
		}
	}

	job, err := r.store.Get(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	if !job.AllItemsTerminal() {
		return
	}
	for _, dir := range []string{r.cfg.JobUploadDir(jobID), r.cfg.JobProcessingDir(jobID)} {
		if err := fileutil.RemoveDirIfExists(dir); err != nil {
			logger.Warn("failed to remove job directory", logging.String("dir", dir), logging.Error(err))
		}
	}
}
