package config

const (
	defaultUploadDir     = "~/.local/share/reelcut/uploads"
	defaultProcessingDir = "~/.local/share/reelcut/processing"
	defaultDownloadDir   = "~/.local/share/reelcut/downloads"
	defaultStaticDir     = "~/.local/share/reelcut/static"
	defaultLogDir        = "~/.local/share/reelcut/logs"
	defaultAPIBind       = "127.0.0.1:8750"

	defaultMovementThreshold   = 0.02
	defaultMinMovingFrames     = 3
	defaultMaxStationaryFrames = 20
	defaultMergeGapSeconds     = 1.0
	defaultTargetHeight        = 720
	defaultTargetFPS           = 30.0

	defaultBufferBeforeSeconds = 2.0
	defaultBufferAfterSeconds  = 3.0

	defaultWorkerCount         = 4
	defaultUploadChunkBytes    = 8 * 1024 * 1024
	defaultStaleAfterSeconds   = 1800
	defaultReclaimIntervalSecs = 60

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultPoseBinary    = "pose-landmarker"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:     defaultUploadDir,
			ProcessingDir: defaultProcessingDir,
			DownloadDir:   defaultDownloadDir,
			StaticDir:     defaultStaticDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
		},
		Detection: Detection{
			MovementThreshold:   defaultMovementThreshold,
			MinMovingFrames:     defaultMinMovingFrames,
			MaxStationaryFrames: defaultMaxStationaryFrames,
			MergeGapSeconds:     defaultMergeGapSeconds,
			TargetHeight:        defaultTargetHeight,
			TargetFPS:           defaultTargetFPS,
		},
		Compile: Compile{
			BufferBeforeSeconds: defaultBufferBeforeSeconds,
			BufferAfterSeconds:  defaultBufferAfterSeconds,
		},
		Workers: Workers{
			Count:               defaultWorkerCount,
			UploadChunkBytes:    defaultUploadChunkBytes,
			StaleAfterSeconds:   defaultStaleAfterSeconds,
			ReclaimIntervalSecs: defaultReclaimIntervalSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
			Pose:    defaultPoseBinary,
		},
	}
}
