package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"filmpress/internal/daemon"
	"filmpress/internal/encode"
	"filmpress/internal/hardware"
	"filmpress/internal/ipc"
	"filmpress/internal/logging"
	"filmpress/internal/notifications"
	"filmpress/internal/preflight"
	"filmpress/internal/store"
	"filmpress/internal/workflow"
)

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare working directories: %w", err)
	}

	logger, err := logging.NewForDaemon(ctx.resolvedLogLevel(cfg), cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	results := preflight.RunAll(signalCtx, cfg)
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
		}
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		for _, result := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "run `filmpress preflight` for details"))
		}
		return fmt.Errorf("%d preflight check(s) failed; run `filmpress preflight` for details", len(failed))
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, "filmpress.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return err
	}
	defer st.Close()

	prober := hardware.NewProber(cfg.FFmpegBinary(), cfg.Encoding.HardwareAcceleration, logger)
	profile := prober.Probe(signalCtx)

	coordinator := encode.NewCoordinator(cfg, profile, logger)
	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, st, coordinator, logger, notifier)

	d, err := daemon.New(cfg, st, manager, coordinator, profile, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	srv, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start control socket: %w", err)
	}
	defer srv.Close()
	srv.Serve()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	select {
	case <-signalCtx.Done():
		logger.Info("filmpress daemon shutting down", logging.String("reason", "signal"))
	case <-d.ShutdownRequested():
		logger.Info("filmpress daemon shutting down", logging.String("reason", "control socket"))
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
