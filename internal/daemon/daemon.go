package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"filmpress/internal/config"
	"filmpress/internal/encode"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/store"
	"filmpress/internal/workflow"
)

// Daemon ties the workflow manager, the record store, and the GPU hotplug
// monitor into one lifecycle guarded by a file lock, so only a single
// instance ever scans a library.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.Store
	manager     *workflow.Manager
	coordinator *encode.Coordinator
	prober      *hardware.Prober
	monitor     *gpuMonitor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.RWMutex
	profile   hardware.Profile
	startedAt time.Time

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// Status reports daemon runtime information for the control socket and CLI.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Workflow     workflow.StatusSummary
	Hardware     string
	DatabasePath string
	LockPath     string
	SocketPath   string
}

// New constructs a daemon around initialized dependencies. The coordinator
// may be nil when hardware re-probing has nowhere to land, as in tests that
// stub the encoder.
func New(cfg *config.Config, st *store.Store, manager *workflow.Manager, coordinator *encode.Coordinator, profile hardware.Profile, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       st,
		manager:     manager,
		coordinator: coordinator,
		prober:      hardware.NewProber(cfg.FFmpegBinary(), cfg.Encoding.HardwareAcceleration, logger),
		lockPath:    cfg.LockPath(),
		lock:        flock.New(cfg.LockPath()),
		profile:     profile,
		shutdownCh:  make(chan struct{}),
	}
	d.monitor = newGPUMonitor(cfg, logger, d.refreshHardware)
	return d, nil
}

// Start acquires the single-instance lock and launches the workflow manager
// and the GPU hotplug monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another filmpress daemon is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.manager.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("gpu monitor failed to start", logging.Error(err))
	}

	d.mu.Lock()
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("hardware", d.currentProfile().Summary()))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
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

// RunNow asks the workflow manager to begin a scan cycle immediately.
func (d *Daemon) RunNow() error {
	return d.manager.RequestRun()
}

// RequestShutdown signals the process to exit. The control socket uses this
// so a stop request unwinds through the same path as SIGTERM.
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() {
		d.logger.Info("shutdown requested via control socket",
			logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
		close(d.shutdownCh)
	})
}

// ShutdownRequested is closed once a control socket client asked the daemon
// to exit.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdownCh
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.RLock()
	startedAt := d.startedAt
	d.mu.RUnlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    startedAt,
		Workflow:     d.manager.Status(ctx),
		Hardware:     d.currentProfile().Summary(),
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
	}
}

// refreshHardware re-probes the encoder ladder after a GPU topology change
// and swaps it into the coordinator for subsequent encodes.
func (d *Daemon) refreshHardware(ctx context.Context) {
	profile := d.prober.Probe(ctx)
	d.mu.Lock()
	d.profile = profile
	d.mu.Unlock()
	if d.coordinator != nil {
		d.coordinator.SetProfile(profile)
	}
	d.logger.Info("hardware profile refreshed",
		logging.String(logging.FieldEventType, "hardware_reprobe"),
		logging.String("hardware", profile.Summary()),
		logging.Any("backends", profile.Backends))
}

func (d *Daemon) currentProfile() hardware.Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.profile
}
