package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDirs []string `toml:"library_dirs"`
	StagingDir  string   `toml:"staging_dir"`
	StateDir    string   `toml:"state_dir"`
	LogDir      string   `toml:"log_dir"`
}

// Workflow contains cycle scheduling and worker pool configuration.
type Workflow struct {
	ScanIntervalMinutes int  `toml:"scan_interval_minutes"`
	StartupDelayMinutes int  `toml:"startup_delay_minutes"`
	Workers             int  `toml:"workers"`
	ReprocessChanged    bool `toml:"reprocess_changed"`
}

// Video contains the target video rendition shape.
type Video struct {
	Codec       string `toml:"codec"`
	Profile     string `toml:"profile"`
	Resolution  string `toml:"resolution"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	BitrateKbps int    `toml:"bitrate_kbps"`
}

// Audio contains the target audio rendition shape.
type Audio struct {
	Codec       string `toml:"codec"`
	Profile     string `toml:"profile"`
	BitrateKbps int    `toml:"bitrate_kbps"`
	Channels    int    `toml:"channels"`
}

// Output contains container and destination-volume settings.
type Output struct {
	Container string `toml:"container"`
	MinFreeMB int64  `toml:"min_free_mb"`
}

// Encoding contains encoder invocation settings.
type Encoding struct {
	FFmpegBinary         string `toml:"ffmpeg_binary"`
	FFprobeBinary        string `toml:"ffprobe_binary"`
	HardwareAcceleration bool   `toml:"hardware_acceleration"`
	Threads              int    `toml:"threads"`
}

// Sidecar controls use of the indexer's companion metadata files.
type Sidecar struct {
	Read   bool `toml:"read"`
	Update bool `toml:"update"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummary     bool   `toml:"run_summary"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for filmpress.
//
// Configuration sections by subsystem:
//   - Paths: library roots and working directories
//   - Workflow: cycle interval, startup delay, worker pool, reprocess policy
//   - Video / Audio: the target rendition profile
//   - Output: container and free-space floor for the destination volume
//   - Encoding: ffmpeg/ffprobe binaries, hardware acceleration, threads
//   - Sidecar: indexer companion metadata read/update switches
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Video         Video         `toml:"video"`
	Audio         Audio         `toml:"audio"`
	Output        Output        `toml:"output"`
	Encoding      Encoding      `toml:"encoding"`
	Sidecar       Sidecar       `toml:"sidecar"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/filmpress/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("filmpress.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories for daemon operation.
// Library roots are external mounts and are never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the encoder executable.
func (c *Config) FFmpegBinary() string {
	return c.Encoding.FFmpegBinary
}

// FFprobeBinary returns the probe executable used for metadata and validation.
func (c *Config) FFprobeBinary() string {
	return c.Encoding.FFprobeBinary
}

// DatabasePath returns the SQLite database location under the state directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "filmpress.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "filmpress.lock")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "filmpress.sock")
}

// ScanInterval returns the pause between cycle starts.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Workflow.ScanIntervalMinutes) * time.Minute
}

// StartupDelay returns how long the daemon waits before its first cycle.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.Workflow.StartupDelayMinutes) * time.Minute
}

// NotifyTimeout returns the per-request notification timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
