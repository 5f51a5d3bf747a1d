package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"filmpress/internal/config"
	"filmpress/internal/daemon"
	"filmpress/internal/encode"
	"filmpress/internal/hardware"
	"filmpress/internal/ipc"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/store"
	"filmpress/internal/testsupport"
	"filmpress/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	store      *store.Store
}

type noopEncoder struct{}

func (noopEncoder) Encode(context.Context, *media.SourceVideo) (*encode.Result, error) {
	return &encode.Result{}, nil
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	configPath := writeTestConfig(t, cfg)

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &cliTestEnv{cfg: cfg, configPath: configPath, store: st}
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func startDaemonEnv(t *testing.T, env *cliTestEnv) *daemon.Daemon {
	t.Helper()

	mgr := workflow.NewManagerWithNotifier(env.cfg, env.store, noopEncoder{}, logging.NewNop(), nil)
	profile := hardware.Profile{Vendor: hardware.VendorUnknown, Backends: []hardware.Backend{hardware.BackendSoftware}}

	d, err := daemon.New(env.cfg, env.store, mgr, nil, profile, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, env.cfg.SocketPath(), d, logging.NewNop())
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	t.Cleanup(func() {
		d.Stop()
		srv.Close()
		cancel()
	})
	return d
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
	t.Fatal("condition not met before timeout")
}

func seedRecord(t *testing.T, env *cliTestEnv, name string, status store.Status, errMsg string) string {
	t.Helper()
	path := filepath.Join(testsupport.LibraryDir(env.cfg), name)
	record := &store.Record{SourcePath: path, Status: status, ErrorMessage: errMsg}
	if status == store.StatusCompleted {
		record.OutputPath = filepath.Join(filepath.Dir(path), "@eaDir", name, "SYNOPHOTO_FILM_H.mp4")
		record.OutputCodec = "h264"
		record.OutputWidth = 854
		record.OutputHeight = 480
		record.Backend = "software"
	}
	if err := env.store.Upsert(context.Background(), record); err != nil {
		t.Fatalf("seed record %s: %v", name, err)
	}
	return path
}

func TestCLIRecordsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	donePath := seedRecord(t, env, "alpha.mp4", store.StatusCompleted, "")
	failedPath := seedRecord(t, env, "beta.mkv", store.StatusFailed, "encode blew up")

	out, _, err := runCLI(t, env.configPath, "records", "list")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	if !strings.Contains(out, "alpha.mp4") || !strings.Contains(out, "beta.mkv") {
		t.Fatalf("records list missing entries: %q", out)
	}
	if !strings.Contains(out, "Completed") || !strings.Contains(out, "Failed") {
		t.Fatalf("records list missing humanized statuses: %q", out)
	}

	out, _, err = runCLI(t, env.configPath, "records", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("records list --status failed: %v", err)
	}
	if !strings.Contains(out, "beta.mkv") || strings.Contains(out, "alpha.mp4") {
		t.Fatalf("status filter not applied: %q", out)
	}

	if _, _, err := runCLI(t, env.configPath, "records", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to fail")
	}

	out, _, err = runCLI(t, env.configPath, "records", "show", failedPath)
	if err != nil {
		t.Fatalf("records show: %v", err)
	}
	if !strings.Contains(out, "encode blew up") {
		t.Fatalf("records show missing error message: %q", out)
	}

	missing := filepath.Join(testsupport.LibraryDir(env.cfg), "ghost.mp4")
	if _, _, err := runCLI(t, env.configPath, "records", "show", missing); err == nil {
		t.Fatal("expected show on missing record to fail")
	}

	out, stderr, err := runCLI(t, env.configPath, "records", "retry", failedPath)
	if err != nil {
		t.Fatalf("records retry: %v", err)
	}
	if !strings.Contains(out, "Record reset for retry") {
		t.Fatalf("unexpected retry output: %q", out)
	}
	if !strings.Contains(stderr, "source is unreadable") {
		t.Fatalf("expected missing-source warning, got %q", stderr)
	}
	record, err := env.store.Get(context.Background(), failedPath)
	if err != nil {
		t.Fatalf("Get after retry: %v", err)
	}
	if record.Status != store.StatusPending {
		t.Fatalf("expected pending after retry, got %s", record.Status)
	}

	if _, _, err := runCLI(t, env.configPath, "records", "retry", donePath); err == nil {
		t.Fatal("expected retry on completed record to fail")
	}

	seedRecord(t, env, "gamma.avi", store.StatusFailed, "boom")
	out, _, err = runCLI(t, env.configPath, "records", "requeue-failed")
	if err != nil {
		t.Fatalf("records requeue-failed: %v", err)
	}
	if !strings.Contains(out, "Requeued 1 failed record(s)") {
		t.Fatalf("unexpected requeue output: %q", out)
	}
}

func TestCLIRecordsListJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecord(t, env, "alpha.mp4", store.StatusCompleted, "")

	out, _, err := runCLI(t, env.configPath, "--json", "records", "list")
	if err != nil {
		t.Fatalf("records list --json: %v", err)
	}
	if !strings.Contains(out, `"source_path"`) || !strings.Contains(out, "alpha.mp4") {
		t.Fatalf("unexpected json output: %q", out)
	}
}

func TestCLIStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRecord(t, env, "alpha.mp4", store.StatusCompleted, "")

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "daemon not running") {
		t.Fatalf("expected daemon-absent notice: %q", out)
	}
	if !strings.Contains(out, "Records") || !strings.Contains(out, "Completed") {
		t.Fatalf("expected record counts in offline status: %q", out)
	}
	if !strings.Contains(out, "Hardware") || !strings.Contains(out, "software") {
		t.Fatalf("expected hardware summary in offline status: %q", out)
	}
}

func TestCLIStatusAndControlWithDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	d := startDaemonEnv(t, env)

	// Let the startup cycle settle so run-now is not rejected as overlapping.
	waitFor(t, func() bool {
		status := d.Status(context.Background())
		return status.Workflow.LastSummary != nil && !status.Workflow.CycleActive
	})

	out, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "pid") || strings.Contains(out, "daemon not running") {
		t.Fatalf("expected running daemon status: %q", out)
	}

	firstRunID := d.Status(context.Background()).Workflow.LastSummary.RunID
	out, _, err = runCLI(t, env.configPath, "daemon", "run-now")
	if err != nil {
		t.Fatalf("daemon run-now: %v", err)
	}
	if !strings.Contains(out, "Scan cycle scheduled") {
		t.Fatalf("unexpected run-now output: %q", out)
	}
	waitFor(t, func() bool {
		status := d.Status(context.Background())
		return status.Workflow.LastSummary != nil && status.Workflow.LastSummary.RunID != firstRunID
	})

	out, _, err = runCLI(t, env.configPath, "daemon", "stop")
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	if !strings.Contains(out, "Shutdown requested") {
		t.Fatalf("unexpected stop output: %q", out)
	}
	select {
	case <-d.ShutdownRequested():
	case <-time.After(time.Second):
		t.Fatal("shutdown channel not closed after stop")
	}
}

func TestCLIDaemonStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "daemon", "stop")
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	if !strings.Contains(out, "Daemon is not running") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLIRunOnce(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Scan cycle") || !strings.Contains(out, "Discovered") {
		t.Fatalf("unexpected run output: %q", out)
	}
}

func TestCLIHardwareCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "hardware")
	if err != nil {
		t.Fatalf("hardware: %v", err)
	}
	if !strings.Contains(out, "software") {
		t.Fatalf("expected software backend in ladder: %q", out)
	}
	if !strings.Contains(out, "Acceleration") {
		t.Fatalf("expected acceleration line: %q", out)
	}
}

func TestCLIPreflightCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, env.configPath, "preflight")
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	if !strings.Contains(out, "PASS") || strings.Contains(out, "FAIL") {
		t.Fatalf("expected all checks passing: %q", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(testsupport.BaseDir(env.cfg), "fresh", "config.toml")
	out, _, err := runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}

	out, _, err = runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	out, _, err = runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "Library roots") || !strings.Contains(out, testsupport.LibraryDir(env.cfg)) {
		t.Fatalf("unexpected show output: %q", out)
	}
}

func TestCLIVersion(t *testing.T) {
	// version skips config loading entirely, so no config file is needed.
	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout.String(), "filmpress") {
		t.Fatalf("unexpected version output: %q", stdout.String())
	}
}

func TestCLIMissingConfigFlag(t *testing.T) {
	_, _, err := runCLI(t, "/nonexistent/config.toml", "records", "list")
	if err == nil {
		t.Fatal("expected missing config file to fail")
	}
	if !strings.Contains(err.Error(), "config file") {
		t.Fatalf("unexpected error: %v", err)
	}
}
