package config

const (
	defaultLibraryDir          = "/media"
	defaultStagingDir          = "~/.local/share/filmpress/staging"
	defaultStateDir            = "~/.local/share/filmpress"
	defaultLogDir              = "~/.local/share/filmpress/logs"
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
	defaultScanIntervalMinutes = 240
	defaultStartupDelayMinutes = 30
	defaultWorkers             = 2
	defaultVideoCodec          = "h264"
	defaultVideoProfile        = "high"
	defaultVideoWidth          = 854
	defaultVideoHeight         = 480
	defaultVideoBitrateKbps    = 2048
	defaultAudioCodec          = "aac"
	defaultAudioBitrateKbps    = 128
	defaultAudioChannels       = 1
	defaultContainer           = "mp4"
	defaultMinFreeMB           = 512
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultEncodeThreads       = 2
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDirs: []string{defaultLibraryDir},
			StagingDir:  defaultStagingDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Workflow: Workflow{
			ScanIntervalMinutes: defaultScanIntervalMinutes,
			StartupDelayMinutes: defaultStartupDelayMinutes,
			Workers:             defaultWorkers,
		},
		Video: Video{
			Codec:       defaultVideoCodec,
			Profile:     defaultVideoProfile,
			Width:       defaultVideoWidth,
			Height:      defaultVideoHeight,
			BitrateKbps: defaultVideoBitrateKbps,
		},
		Audio: Audio{
			Codec:       defaultAudioCodec,
			BitrateKbps: defaultAudioBitrateKbps,
			Channels:    defaultAudioChannels,
		},
		Output: Output{
			Container: defaultContainer,
			MinFreeMB: defaultMinFreeMB,
		},
		Encoding: Encoding{
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
			HardwareAcceleration: true,
			Threads:              defaultEncodeThreads,
		},
		Sidecar: Sidecar{
			Read:   true,
			Update: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunSummary:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
