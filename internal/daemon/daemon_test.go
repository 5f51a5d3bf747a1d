package daemon_test

import (
	"context"
	"testing"
	"time"

	"filmpress/internal/daemon"
	"filmpress/internal/encode"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/store"
	"filmpress/internal/testsupport"
	"filmpress/internal/workflow"
)

type noopEncoder struct{}

func (noopEncoder) Encode(context.Context, *media.SourceVideo) (*encode.Result, error) {
	return &encode.Result{}, nil
}

func softwareProfile() hardware.Profile {
	return hardware.Profile{
		Vendor:   hardware.VendorUnknown,
		Backends: []hardware.Backend{hardware.BackendSoftware},
	}
}

func newTestDaemon(t *testing.T) (*daemon.Daemon, *store.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	mgr := workflow.NewManagerWithNotifier(cfg, st, noopEncoder{}, logging.NewNop(), nil)
	d, err := daemon.New(cfg, st, mgr, nil, softwareProfile(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, st
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected a pid, got %d", status.PID)
	}
	if status.StartedAt.IsZero() {
		t.Fatal("expected a start timestamp")
	}
	if status.Hardware == "" {
		t.Fatal("expected a hardware summary")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if status.Workflow.Running {
		t.Fatal("expected workflow to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	open := func() *daemon.Daemon {
		st, err := store.Open(cfg)
		if err != nil {
			t.Fatalf("store.Open: %v", err)
		}
		mgr := workflow.NewManagerWithNotifier(cfg, st, noopEncoder{}, logger, nil)
		d, err := daemon.New(cfg, st, mgr, nil, softwareProfile(), logger)
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		t.Cleanup(func() {
			d.Close()
		})
		return d
	}

	first := open()
	second := open()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance to fail on the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release failed: %v", err)
	}
	second.Stop()
}

func TestDaemonRunNow(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The startup cycle runs against an empty library and settles quickly.
	waitFor(t, func() bool {
		status := d.Status(ctx).Workflow
		return status.LastSummary != nil && !status.CycleActive
	})
	firstRun := d.Status(ctx).Workflow.LastSummary.RunID

	if err := d.RunNow(); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	waitFor(t, func() bool {
		summary := d.Status(ctx).Workflow.LastSummary
		return summary != nil && summary.RunID != firstRun
	})
}

func TestDaemonShutdownRequest(t *testing.T) {
	d, _ := newTestDaemon(t)

	select {
	case <-d.ShutdownRequested():
		t.Fatal("shutdown channel closed before request")
	default:
	}

	d.RequestShutdown()
	d.RequestShutdown() // idempotent

	select {
	case <-d.ShutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("expected shutdown channel to be closed")
	}
}
