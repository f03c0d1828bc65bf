package config

const (
	defaultBufferDir             = "~/.local/share/reel/buffer"
	defaultClipsDir              = "~/clips"
	defaultLogDir                = "~/.local/share/reel/logs"
	defaultDatabasePath          = "~/.local/share/reel/reel.db"
	defaultSocketPath            = "~/.local/share/reel/reel.sock"
	defaultPIDPath               = "~/.local/share/reel/reel.pid"
	defaultLockPath              = "~/.local/share/reel/reel.lock"
	defaultCaptureBinary         = "streamlink"
	defaultEncodeBinary          = "ffmpeg"
	defaultProbeBinary           = "ffprobe"
	defaultQuality               = "1080p"
	defaultMaxDurationSeconds    = 300
	defaultSegmentSeconds        = 30
	defaultMinSegmentBytes       = 1000
	defaultSessionRetentionHours = 24
	defaultFailureThreshold      = 3
	defaultRetryDelaySeconds     = 2
	defaultTimeoutFactor         = 2
	defaultStopGraceSeconds      = 5
	defaultWatchdogInterval      = 5
	defaultWatchdogStall         = 30
	defaultMonitorInterval       = 60
	defaultProbeTimeoutSeconds   = 10
	defaultClipDurationSeconds   = 30
	defaultClipFormat            = "mp4"
	defaultMinClipBytes          = 10000
	defaultEncodeTimeoutSeconds  = 900
	defaultHistoryLimit          = 20
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 60
	defaultLogStreamCapacity     = 4096
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BufferDir:    defaultBufferDir,
			ClipsDir:     defaultClipsDir,
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
			SocketPath:   defaultSocketPath,
			PIDPath:      defaultPIDPath,
			LockPath:     defaultLockPath,
		},
		Buffer: Buffer{
			MaxDurationSeconds:    defaultMaxDurationSeconds,
			SegmentSeconds:        defaultSegmentSeconds,
			MinSegmentBytes:       defaultMinSegmentBytes,
			SessionRetentionHours: defaultSessionRetentionHours,
		},
		Capture: Capture{
			Binary:            defaultCaptureBinary,
			Quality:           defaultQuality,
			FailureThreshold:  defaultFailureThreshold,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			TimeoutFactor:     defaultTimeoutFactor,
			StopGraceSeconds:  defaultStopGraceSeconds,
		},
		Watchdog: Watchdog{
			IntervalSeconds: defaultWatchdogInterval,
			StallSeconds:    defaultWatchdogStall,
		},
		Monitor: Monitor{
			Enabled:             true,
			IntervalSeconds:     defaultMonitorInterval,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Clips: Clips{
			EncodeBinary:           defaultEncodeBinary,
			ProbeBinary:            defaultProbeBinary,
			DefaultDurationSeconds: defaultClipDurationSeconds,
			DefaultFormat:          defaultClipFormat,
			MinClipBytes:           defaultMinClipBytes,
			EncodeTimeoutSeconds:   defaultEncodeTimeoutSeconds,
			HistoryLimit:           defaultHistoryLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			SessionEvents:  true,
			ClipEvents:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:         defaultLogFormat,
			Level:          defaultLogLevel,
			RetentionDays:  defaultLogRetentionDays,
			StreamCapacity: defaultLogStreamCapacity,
		},
	}
}
