package config

import (
	"fmt"
	"os"
	"strings"

	"filmpress/internal/media"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	c.normalizeAudio()
	c.normalizeOutput()
	c.normalizeEncoding()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	dirs := make([]string, 0, len(c.Paths.LibraryDirs))
	seen := make(map[string]struct{}, len(c.Paths.LibraryDirs))
	for _, dir := range c.Paths.LibraryDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("paths.library_dirs: %w", err)
		}
		if _, exists := seen[expanded]; exists {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	c.Paths.LibraryDirs = dirs

	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ScanIntervalMinutes <= 0 {
		c.Workflow.ScanIntervalMinutes = defaultScanIntervalMinutes
	}
	if c.Workflow.StartupDelayMinutes < 0 {
		c.Workflow.StartupDelayMinutes = 0
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeVideo() error {
	c.Video.Codec = strings.ToLower(strings.TrimSpace(c.Video.Codec))
	if c.Video.Codec == "" {
		c.Video.Codec = defaultVideoCodec
	}
	c.Video.Profile = strings.ToLower(strings.TrimSpace(c.Video.Profile))
	c.Video.Resolution = strings.ToLower(strings.TrimSpace(c.Video.Resolution))

	if c.Video.Resolution != "" {
		resolution, ok := media.ParseResolution(c.Video.Resolution)
		if !ok {
			return fmt.Errorf("video.resolution: unknown name %q", c.Video.Resolution)
		}
		c.Video.Width = resolution.Width
		c.Video.Height = resolution.Height
	}
	if c.Video.Width <= 0 {
		c.Video.Width = defaultVideoWidth
	}
	if c.Video.Height <= 0 {
		c.Video.Height = defaultVideoHeight
	}
	if c.Video.BitrateKbps <= 0 {
		c.Video.BitrateKbps = defaultVideoBitrateKbps
	}

	// Canonicalize the codec spelling and fill the per-codec default
	// profile; validation reports codecs that do not parse at all.
	if codec, ok := media.ParseVideoCodec(c.Video.Codec); ok {
		c.Video.Codec = string(codec)
		if c.Video.Profile == "" && codec.SupportsProfiles() {
			if profile, ok := codec.DefaultProfile(); ok {
				c.Video.Profile = string(profile)
			}
		}
	}
	return nil
}

func (c *Config) normalizeAudio() {
	c.Audio.Codec = strings.ToLower(strings.TrimSpace(c.Audio.Codec))
	if c.Audio.Codec == "" {
		c.Audio.Codec = defaultAudioCodec
	}
	if codec, ok := media.ParseAudioCodec(c.Audio.Codec); ok {
		c.Audio.Codec = string(codec)
	}
	c.Audio.Profile = strings.ToLower(strings.TrimSpace(c.Audio.Profile))
	if c.Audio.BitrateKbps <= 0 {
		c.Audio.BitrateKbps = defaultAudioBitrateKbps
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaultAudioChannels
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Container = strings.ToLower(strings.TrimSpace(c.Output.Container))
	if c.Output.Container == "" {
		c.Output.Container = defaultContainer
	}
	if c.Output.MinFreeMB < 0 {
		c.Output.MinFreeMB = 0
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.FFmpegBinary = strings.TrimSpace(c.Encoding.FFmpegBinary)
	if c.Encoding.FFmpegBinary == "" {
		c.Encoding.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoding.FFprobeBinary = strings.TrimSpace(c.Encoding.FFprobeBinary)
	if c.Encoding.FFprobeBinary == "" {
		c.Encoding.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Encoding.Threads < 0 {
		c.Encoding.Threads = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("FILMPRESS_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
