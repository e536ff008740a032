package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reelcut/internal/clipplan"
	"reelcut/internal/media/ffmpeg"
	"reelcut/internal/media/ffprobe"
	"reelcut/internal/segment"
	"reelcut/internal/services/pose"
)

// newProcessCommand cuts a highlight reel from one video without going
// through the daemon. It runs the same normalize, detect, plan, and compile
// pipeline the workers run, with tuning overrides from flags.
func newProcessCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var threshold float64
	var minMoving int
	var maxStationary int
	var bufferBefore float64
	var bufferAfter float64
	var height int
	var fps float64

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Cut a highlight reel from a single video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			input := args[0]
			info, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("open input video: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("input %s is a directory", input)
			}

			params := segment.Params{
				MovementThreshold:   cfg.Detection.MovementThreshold,
				MinMovingFrames:     cfg.Detection.MinMovingFrames,
				MaxStationaryFrames: cfg.Detection.MaxStationaryFrames,
				MergeGap:            cfg.Detection.MergeGapSeconds,
			}
			if cmd.Flags().Changed("threshold") {
				params.MovementThreshold = threshold
			}
			if cmd.Flags().Changed("min-moving-frames") {
				params.MinMovingFrames = minMoving
			}
			if cmd.Flags().Changed("max-stationary-frames") {
				params.MaxStationaryFrames = maxStationary
			}
			if !cmd.Flags().Changed("buffer-before") {
				bufferBefore = cfg.Compile.BufferBeforeSeconds
			}
			if !cmd.Flags().Changed("buffer-after") {
				bufferAfter = cfg.Compile.BufferAfterSeconds
			}
			normalize := ffmpeg.NormalizeOptions{
				TargetHeight: cfg.Detection.TargetHeight,
				TargetFPS:    cfg.Detection.TargetFPS,
			}
			if cmd.Flags().Changed("height") {
				normalize.TargetHeight = height
			}
			if cmd.Flags().Changed("fps") {
				normalize.TargetFPS = fps
			}

			if strings.TrimSpace(outPath) == "" {
				dir := filepath.Dir(input)
				base := filepath.Base(input)
				stem := strings.TrimSuffix(base, filepath.Ext(base))
				outPath = filepath.Join(dir, "highlight_"+stem+".mp4")
			}

			workDir, err := os.MkdirTemp("", "reelcut-process-")
			if err != nil {
				return fmt.Errorf("create work directory: %w", err)
			}
			defer os.RemoveAll(workDir)

			out := cmd.OutOrStdout()
			runCtx := cmd.Context()

			normalizer := ffmpeg.NewNormalizer(ffmpeg.WithBinary(cfg.Tools.FFmpeg))
			prepared, err := normalizer.Normalize(runCtx, input, workDir, "local", normalize)
			if err != nil {
				return fmt.Errorf("prepare video: %w", err)
			}

			poseClient := pose.NewCLI(pose.WithBinary(cfg.Tools.Pose))
			scorer := pose.NewScorer()
			var signals []segment.Signal
			meta, err := poseClient.Analyze(runCtx, prepared, func(frame pose.Frame) {
				signals = append(signals, scorer.Score(frame))
			})
			if err != nil {
				return fmt.Errorf("detect moving humans: %w", err)
			}

			videoFPS := meta.FPS
			if videoFPS <= 0 {
				probe, probeErr := ffprobe.Inspect(runCtx, cfg.Tools.FFprobe, prepared)
				if probeErr == nil {
					videoFPS = probe.FrameRate()
				}
			}
			if videoFPS <= 0 {
				return errors.New("unable to read fps from video")
			}

			frameCount := len(signals)
			if meta.FrameCount > frameCount {
				frameCount = meta.FrameCount
			}
			duration := float64(frameCount) / videoFPS

			segments, err := segment.Detect(signals, videoFPS, duration, params)
			if err != nil {
				return fmt.Errorf("detect segments: %w", err)
			}
			if len(segments) == 0 {
				return errors.New("no moving humans detected")
			}
			fmt.Fprintf(out, "Found %d segments\n", len(segments))

			windows := clipplan.Plan(segments, duration, bufferBefore, bufferAfter)
			if len(windows) == 0 {
				return errors.New("no clip windows survived planning")
			}
			printWindows(out, windows)

			compiler := ffmpeg.NewCompiler(ffmpeg.WithBinary(cfg.Tools.FFmpeg))
			result, err := compiler.Compile(runCtx, prepared, windows, outPath)
			if err != nil {
				return fmt.Errorf("compile highlight reel: %w", err)
			}
			if result == "" {
				return errors.New("compile produced no output")
			}

			fmt.Fprintf(out, "Wrote %s\n", result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default highlight_<name>.mp4 next to the input)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Movement score threshold")
	cmd.Flags().IntVar(&minMoving, "min-moving-frames", 0, "Moving frames required to open a segment")
	cmd.Flags().IntVar(&maxStationary, "max-stationary-frames", 0, "Still frames tolerated before a segment closes")
	cmd.Flags().Float64Var(&bufferBefore, "buffer-before", 0, "Seconds of lead-in kept before each segment")
	cmd.Flags().Float64Var(&bufferAfter, "buffer-after", 0, "Seconds of tail kept after each segment")
	cmd.Flags().IntVar(&height, "height", 0, "Downscale to this height before detection (0 keeps source)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Downsample to this frame rate before detection (0 keeps source)")
	return cmd
}

func printWindows(out io.Writer, windows []clipplan.Window) {
	rows := make([][]string, 0, len(windows))
	for i, window := range windows {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.3f", window.Start),
			fmt.Sprintf("%.3f", window.End),
			fmt.Sprintf("%.3f", window.End-window.Start),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Clip", "Start", "End", "Length"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))
}
