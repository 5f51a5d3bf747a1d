package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"filmpress/internal/config"
	"filmpress/internal/decision"
	"filmpress/internal/encode"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/metadata"
	"filmpress/internal/notifications"
	"filmpress/internal/scan"
	"filmpress/internal/store"
)

// ErrCycleInProgress reports that a scan cycle is already running.
var ErrCycleInProgress = errors.New("scan cycle already in progress")

// ErrNotRunning reports that the background loop is stopped.
var ErrNotRunning = errors.New("workflow not running")

// Encoder produces the preview rendition for one source file.
type Encoder interface {
	Encode(ctx context.Context, source *media.SourceVideo) (*encode.Result, error)
}

// Resolver supplies stream metadata for one library file.
type Resolver interface {
	Resolve(ctx context.Context, path string) (*media.SourceVideo, error)
}

// Manager coordinates periodic scan cycles over the library roots.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	walker   *scan.Walker
	resolver Resolver
	encoder  Encoder
	engine   decision.Engine
	notifier notifications.Service
	logger   *slog.Logger

	kick        chan struct{}
	cycleActive atomic.Bool

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastSummary *Summary
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, st *store.Store, encoder Encoder, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, st, encoder, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, st *store.Store, encoder Encoder, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		store:    st,
		walker:   scan.NewWalker(cfg.Paths.LibraryDirs, logger),
		resolver: metadata.NewResolver(cfg.FFprobeBinary(), cfg.Sidecar.Read, logger),
		encoder:  encoder,
		engine: decision.Engine{
			Target: cfg.Target(),
			Policy: decision.Policy{ReprocessChanged: cfg.Workflow.ReprocessChanged},
		},
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		kick:     make(chan struct{}, 1),
	}
}

// Start begins the periodic scan loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// RequestRun asks the background loop to start a cycle now instead of
// waiting for the next tick.
func (m *Manager) RequestRun() error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}
	if m.cycleActive.Load() {
		return ErrCycleInProgress
	}
	select {
	case m.kick <- struct{}{}:
	default:
	}
	return nil
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	if reset, err := m.store.ResetInProgress(ctx); err != nil {
		m.logger.Warn("reset of interrupted records failed; they retry next cycle anyway", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("re-queued records interrupted by the previous run", logging.Int64("records", reset))
	}

	if delay := m.cfg.StartupDelay(); delay > 0 {
		m.logger.Info("waiting before first scan", logging.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	ticker := time.NewTicker(m.cfg.ScanInterval())
	defer ticker.Stop()

	for {
		m.runCycleLogged(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.kick:
		}
	}
}

func (m *Manager) runCycleLogged(ctx context.Context) {
	_, err := m.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
	case errors.Is(err, ErrCycleInProgress):
		m.logger.Warn("scan cycle still running, skipping tick")
	default:
		m.setLastError(err)
		m.logger.Error("scan cycle failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "cycle_failed"))
		m.notifyError(ctx, err, "scan cycle")
	}
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	CycleActive bool
	LastError   string
	LastSummary *Summary
	Records     store.HealthSummary
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	var last *Summary
	if m.lastSummary != nil {
		cp := *m.lastSummary
		last = &cp
	}
	m.mu.RUnlock()

	summary := StatusSummary{
		Running:     running,
		CycleActive: m.cycleActive.Load(),
		LastSummary: last,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}

	health, err := m.store.Health(ctx)
	if err != nil {
		logging.WithContext(ctx, m.logger).Warn("failed to read ledger stats", logging.Error(err))
	} else {
		summary.Records = health
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastSummary(summary *Summary) {
	m.mu.Lock()
	if summary != nil {
		cp := *summary
		m.lastSummary = &cp
	}
	m.mu.Unlock()
}
