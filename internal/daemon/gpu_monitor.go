package daemon

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"filmpress/internal/config"
	"filmpress/internal/logging"
)

// gpuMonitor listens for udev netlink events on the drm subsystem and
// triggers a hardware re-probe when a render node appears or changes. A
// driver that finishes loading after the daemon started still gets its
// accelerated ladder picked up without a restart.
type gpuMonitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newGPUMonitor creates a monitor for GPU hotplug events. Returns nil when
// hardware acceleration is disabled; a software-only ladder never changes.
func newGPUMonitor(cfg *config.Config, logger *slog.Logger, handler func(ctx context.Context)) *gpuMonitor {
	if cfg == nil || !cfg.Encoding.HardwareAcceleration {
		return nil
	}
	return &gpuMonitor{
		logger:  logging.NewComponentLogger(logger, "gpu-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events.
func (m *gpuMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; hardware changes need a daemon restart", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "encoder ladder stays as probed at startup"),
		)
		return nil // Non-fatal - the startup probe result keeps serving
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit channel to goroutine to avoid reading m.quit without lock
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("gpu monitor started",
		logging.String(logging.FieldEventType, "gpu_monitor_started"))

	return nil
}

// Stop shuts down the netlink monitor.
func (m *gpuMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false

	m.logger.Info("gpu monitor stopped",
		logging.String(logging.FieldEventType, "gpu_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *gpuMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// monitorLoop reads netlink events and processes drm hotplugs.
func (m *gpuMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	events := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(events, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-events:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "gpu hotplug detection may be affected"),
			)
		}
	}
}

// buildMatcher creates a matcher for GPU device events:
// SUBSYSTEM=drm, ACTION=add|change.
func (m *gpuMonitor) buildMatcher() netlink.Matcher {
	action := "add|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "drm",
		},
	})
	return rules
}

// handleEvent processes a matched drm uevent. Only render nodes feed the
// encoders; card and connector events are ignored.
func (m *gpuMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := m.extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj))
		return
	}
	if !isRenderNode(devname) {
		m.logger.Debug("ignoring non-render drm event",
			logging.String("device", devname))
		return
	}

	m.logger.Info("gpu render node changed",
		logging.String(logging.FieldEventType, "gpu_hotplug"),
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)))

	if m.handler == nil {
		return
	}
	m.handler(ctx)
}

// isRenderNode reports whether the device is a drm render node. DEVNAME may
// arrive relative to /dev, so only the base name is inspected.
func isRenderNode(devname string) bool {
	return strings.HasPrefix(path.Base(devname), "renderD")
}

// extractDeviceName gets the device path from a uevent.
func (m *gpuMonitor) extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}

	// Fall back to DEVPATH (e.g. /devices/pci.../drm/renderD128)
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}

	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/dri/" + parts[len(parts)-1]
}
