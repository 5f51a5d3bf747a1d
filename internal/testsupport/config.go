package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"filmpress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDirs = []string{filepath.Join(base, "library")}
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Workflow.StartupDelayMinutes = 0
	cfgVal.Workflow.Workers = 1
	cfgVal.Encoding.HardwareAcceleration = false

	if err := os.MkdirAll(cfgVal.Paths.LibraryDirs[0], 0o755); err != nil {
		t.Fatalf("mkdir library dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets the transcode worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = workers
	}
}

// WithReprocessChanged enables the changed-source reprocess policy.
func WithReprocessChanged() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.ReprocessChanged = true
	}
}

// WithSidecar sets the sidecar read/update switches on the test config.
func WithSidecar(read, update bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sidecar.Read = read
		b.cfg.Sidecar.Update = update
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// LibraryDir returns the first library root of the generated config.
func LibraryDir(cfg *config.Config) string {
	if len(cfg.Paths.LibraryDirs) == 0 {
		return ""
	}
	return cfg.Paths.LibraryDirs[0]
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
