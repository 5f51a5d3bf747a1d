package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"filmpress/internal/media"
)

// Validate checks semantic constraints after normalization has applied
// defaults. It returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if len(c.Paths.LibraryDirs) == 0 {
		return errors.New("paths.library_dirs must list at least one directory")
	}
	for _, dir := range c.Paths.LibraryDirs {
		if !strings.HasPrefix(dir, "/") {
			return fmt.Errorf("paths.library_dirs entry %q must be absolute", dir)
		}
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be configured")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be configured")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be configured")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.scan_interval_minutes": c.Workflow.ScanIntervalMinutes,
		"workflow.workers":               c.Workflow.Workers,
	}); err != nil {
		return err
	}
	if c.Workflow.StartupDelayMinutes < 0 {
		return errors.New("workflow.startup_delay_minutes cannot be negative")
	}
	return nil
}

func (c *Config) validateVideo() error {
	codec, ok := media.ParseVideoCodec(c.Video.Codec)
	if !ok {
		return fmt.Errorf("video.codec %q is not a recognized codec", c.Video.Codec)
	}
	if codec.SupportsProfiles() {
		if _, ok := media.ParseVideoProfile(c.Video.Profile, codec); !ok {
			return fmt.Errorf("video.profile %q is not valid for codec %q", c.Video.Profile, codec)
		}
	} else if c.Video.Profile != "" {
		return fmt.Errorf("video.profile must be empty for codec %q", codec)
	}
	return ensurePositiveMap(map[string]int{
		"video.width":        c.Video.Width,
		"video.height":       c.Video.Height,
		"video.bitrate_kbps": c.Video.BitrateKbps,
	})
}

func (c *Config) validateAudio() error {
	codec, ok := media.ParseAudioCodec(c.Audio.Codec)
	if !ok {
		return fmt.Errorf("audio.codec %q is not a recognized codec", c.Audio.Codec)
	}
	if c.Audio.Profile != "" {
		if codec != media.AudioAAC {
			return fmt.Errorf("audio.profile is only supported for codec %q", media.AudioAAC)
		}
		if _, ok := media.ParseAACProfile(c.Audio.Profile); !ok {
			return fmt.Errorf("audio.profile %q is not a recognized AAC profile", c.Audio.Profile)
		}
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 8 {
		return fmt.Errorf("audio.channels must be between 1 and 8, got %d", c.Audio.Channels)
	}
	return ensurePositiveMap(map[string]int{
		"audio.bitrate_kbps": c.Audio.BitrateKbps,
	})
}

func (c *Config) validateOutput() error {
	if c.Output.Container != "mp4" {
		return fmt.Errorf("output.container %q is not supported, only \"mp4\" is", c.Output.Container)
	}
	if c.Output.MinFreeMB < 0 {
		return errors.New("output.min_free_mb cannot be negative")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.FFmpegBinary == "" {
		return errors.New("encoding.ffmpeg_binary must be configured")
	}
	if c.Encoding.FFprobeBinary == "" {
		return errors.New("encoding.ffprobe_binary must be configured")
	}
	if c.Encoding.Threads < 0 {
		return errors.New("encoding.threads cannot be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, values[key])
		}
	}
	return nil
}
