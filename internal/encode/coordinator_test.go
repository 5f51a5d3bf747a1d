package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filmpress/internal/config"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/media/ffprobe"
	"filmpress/internal/media/sidecar"
	"filmpress/internal/services"
	"filmpress/internal/testsupport"
)

// stubRunner replays one behavior per invocation; the default behavior
// writes a plausible rendition to the output argument.
type stubRunner struct {
	calls     [][]string
	behaviors []func(args []string) error
}

func (r *stubRunner) Run(_ context.Context, _ string, args []string) error {
	r.calls = append(r.calls, args)
	idx := len(r.calls) - 1
	if idx < len(r.behaviors) && r.behaviors[idx] != nil {
		return r.behaviors[idx](args)
	}
	return writeRendition(args)
}

func writeRendition(args []string) error {
	return os.WriteFile(args[len(args)-1], []byte("rendition"), 0o644)
}

func validProbe(context.Context, string, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{
			CodecType: "video",
			CodecName: "h264",
			Width:     854,
			Height:    480,
		}},
		Format: ffprobe.Format{Duration: "120.5"},
	}, nil
}

func newTestCoordinator(t *testing.T, cfg *config.Config, backends ...hardware.Backend) (*Coordinator, *stubRunner) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	runner := &stubRunner{}
	profile := hardware.Profile{Vendor: hardware.VendorIntel, Backends: backends}
	coord := NewCoordinator(cfg, profile, logging.NewNop())
	coord.runner = runner
	coord.probe = validProbe
	coord.freeBytes = func(string) (uint64, error) { return 1 << 40, nil }
	return coord, runner
}

func librarySource(t *testing.T, cfg *config.Config) *media.SourceVideo {
	t.Helper()
	path := filepath.Join(testsupport.LibraryDir(cfg), "movie.mkv")
	testsupport.WriteFile(t, path, 2048)
	return &media.SourceVideo{
		Path: path,
		Video: media.VideoTrack{
			Codec: "h264", Profile: "High",
			Width: 1920, Height: 1080, FrameRate: 30,
		},
		Audio: media.AudioTrack{Codec: "aac", Channels: 2},
	}
}

func assertStagingEmpty(t *testing.T, cfg *config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("staging dir not cleaned: %v", names)
	}
}

func TestEncodeWritesRenditionIntoCompanionDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	coord, runner := newTestCoordinator(t, cfg, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	result, err := coord.Encode(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}

	wantOutput := sidecar.PreviewPath(source.Path)
	if result.OutputPath != wantOutput {
		t.Fatalf("output path = %s, want %s", result.OutputPath, wantOutput)
	}
	payload, err := os.ReadFile(wantOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "rendition" {
		t.Fatalf("unexpected rendition content %q", payload)
	}
	if result.Backend != hardware.BackendSoftware || result.Codec != "h264" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Width != 854 || result.Height != 480 || result.DurationSeconds != 120.5 {
		t.Fatalf("unexpected probed dimensions %+v", result)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected a single encoder invocation, got %d", len(runner.calls))
	}
	assertStagingEmpty(t, cfg)
}

func TestEncodeFallsBackOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	coord, runner := newTestCoordinator(t, cfg,
		hardware.BackendQSV, hardware.BackendVAAPI, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	runner.behaviors = []func([]string) error{
		func([]string) error { return errors.New("qsv device busy") },
	}

	result, err := coord.Encode(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if result.Backend != hardware.BackendVAAPI {
		t.Fatalf("expected vaapi fallback, got %s", result.Backend)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected two invocations, got %d", len(runner.calls))
	}
	first := strings.Join(runner.calls[0], " ")
	second := strings.Join(runner.calls[1], " ")
	if !strings.Contains(first, "h264_qsv") || !strings.Contains(second, "h264_vaapi") {
		t.Fatalf("unexpected backend order:\n%s\n%s", first, second)
	}
	assertStagingEmpty(t, cfg)
}

func TestEncodeStopsAfterSingleFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	coord, runner := newTestCoordinator(t, cfg,
		hardware.BackendQSV, hardware.BackendVAAPI, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	fail := func([]string) error { return errors.New("encoder crashed") }
	runner.behaviors = []func([]string) error{fail, fail, fail}

	_, err := coord.Encode(context.Background(), source)
	if err == nil {
		t.Fatal("expected error after the fallback attempt failed")
	}
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected execution marker, got %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected exactly two invocations, got %d", len(runner.calls))
	}
	assertStagingEmpty(t, cfg)
}

func TestEncodeNoFallbackFromSoftware(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	coord, runner := newTestCoordinator(t, cfg, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	runner.behaviors = []func([]string) error{
		func([]string) error { return errors.New("out of memory") },
	}

	if _, err := coord.Encode(context.Background(), source); err == nil {
		t.Fatal("expected error")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("software failures must not retry, got %d invocations", len(runner.calls))
	}
}

func TestEncodeInvalidOutputTriggersFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	coord, runner := newTestCoordinator(t, cfg,
		hardware.BackendQSV, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	runner.behaviors = []func([]string) error{
		// Exit zero but leave an empty file, the way a crashed encoder can.
		func(args []string) error { return os.WriteFile(args[len(args)-1], nil, 0o644) },
	}

	result, err := coord.Encode(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if result.Backend != hardware.BackendSoftware {
		t.Fatalf("expected software fallback, got %s", result.Backend)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected two invocations, got %d", len(runner.calls))
	}
	assertStagingEmpty(t, cfg)
}

func TestEncodeCancelledContextDoesNotRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	coord, runner := newTestCoordinator(t, cfg,
		hardware.BackendQSV, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	runner.behaviors = []func([]string) error{
		func([]string) error {
			cancel()
			return errors.New("killed")
		},
	}

	if _, err := coord.Encode(ctx, source); err == nil {
		t.Fatal("expected error")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("cancellation must not retry, got %d invocations", len(runner.calls))
	}
}

func TestEncodeEnforcesFreeSpaceFloor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Output.MinFreeMB = 512
	coord, runner := newTestCoordinator(t, cfg, hardware.BackendSoftware)
	coord.freeBytes = func(string) (uint64, error) { return 100 * 1024 * 1024, nil }
	source := librarySource(t, cfg)

	_, err := coord.Encode(context.Background(), source)
	if err == nil {
		t.Fatal("expected free-space error")
	}
	if !strings.Contains(err.Error(), "floor") {
		t.Fatalf("unexpected error %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("encoder must not start below the free-space floor")
	}
}

func TestEncodeForcesSoftwareForCodecsWithoutHardware(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Video.Codec = "vp9"
	cfg.Video.Profile = ""
	coord, runner := newTestCoordinator(t, cfg,
		hardware.BackendQSV, hardware.BackendSoftware)
	source := librarySource(t, cfg)

	result, err := coord.Encode(context.Background(), source)
	if err != nil {
		t.Fatal(err)
	}
	if result.Backend != hardware.BackendSoftware {
		t.Fatalf("expected software encode, got %s", result.Backend)
	}
	if !strings.Contains(strings.Join(runner.calls[0], " "), "libvpx-vp9") {
		t.Fatalf("unexpected command %v", runner.calls[0])
	}
}
