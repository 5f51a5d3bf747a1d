package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"filmpress/internal/config"
	"filmpress/internal/encode"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/media"
	"filmpress/internal/media/sidecar"
	"filmpress/internal/store"
	"filmpress/internal/testsupport"
)

type stubEncoder struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
	block   chan struct{}
	active  int
	peak    int
}

func (e *stubEncoder) Encode(ctx context.Context, source *media.SourceVideo) (*encode.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, source.Path)
	e.active++
	if e.active > e.peak {
		e.peak = e.active
	}
	failErr := e.failFor[source.Path]
	block := e.block
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}
	return &encode.Result{
		OutputPath:      sidecar.PreviewPath(source.Path),
		Width:           854,
		Height:          480,
		Codec:           "h264",
		Backend:         hardware.BackendSoftware,
		DurationSeconds: 120,
	}, nil
}

func (e *stubEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *stubEncoder) activeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *stubEncoder) peakConcurrency() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peak
}

func (e *stubEncoder) setFailure(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failFor, path)
		return
	}
	e.failFor[path] = err
}

type stubResolver struct {
	mu     sync.Mutex
	videos map[string]*media.SourceVideo
	errs   map[string]error
	calls  map[string]int
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		videos: make(map[string]*media.SourceVideo),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (r *stubResolver) Resolve(_ context.Context, path string) (*media.SourceVideo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[path]++
	if err := r.errs[path]; err != nil {
		return nil, err
	}
	if video := r.videos[path]; video != nil {
		return video, nil
	}
	return lowQualitySource(path), nil
}

func (r *stubResolver) resolveCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

func (r *stubResolver) setVideo(path string, video *media.SourceVideo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[path] = video
}

func (r *stubResolver) setError(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[path] = err
}

// lowQualitySource falls short of the default target profile, so the engine
// routes it to the encoder.
func lowQualitySource(path string) *media.SourceVideo {
	return &media.SourceVideo{
		Path: path,
		Video: media.VideoTrack{
			Codec:     "h264",
			Profile:   "Constrained Baseline",
			Width:     640,
			Height:    360,
			FrameRate: 29.97,
		},
		Audio:     media.AudioTrack{Codec: "aac", Channels: 2},
		Container: media.ContainerInfo{Format: "matroska", DurationSeconds: 60},
	}
}

// highQualitySource meets the default target profile on every dimension.
func highQualitySource(path string) *media.SourceVideo {
	return &media.SourceVideo{
		Path: path,
		Video: media.VideoTrack{
			Codec:     "h264",
			Profile:   "High",
			Width:     1920,
			Height:    1080,
			FrameRate: 29.97,
		},
		Audio:     media.AudioTrack{Codec: "aac", Channels: 2},
		Container: media.ContainerInfo{Format: "matroska", DurationSeconds: 60},
	}
}

type fixture struct {
	cfg      *config.Config
	store    *store.Store
	manager  *Manager
	encoder  *stubEncoder
	resolver *stubResolver
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	encoder := &stubEncoder{failFor: make(map[string]error)}
	manager := NewManagerWithNotifier(cfg, st, encoder, logging.NewNop(), nil)
	resolver := newStubResolver()
	manager.resolver = resolver

	return &fixture{cfg: cfg, store: st, manager: manager, encoder: encoder, resolver: resolver}
}

func (f *fixture) addVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(testsupport.LibraryDir(f.cfg), name)
	testsupport.WriteFile(t, path, 4096)
	return path
}

func (f *fixture) record(t *testing.T, path string) *store.Record {
	t.Helper()
	record, err := f.store.Get(context.Background(), path)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	return record
}

func writeSidecarInfo(t *testing.T, videoPath string, values map[int]string) {
	t.Helper()
	tokens := make([]string, 60)
	for i := range tokens {
		tokens[i] = "0"
	}
	for idx, value := range values {
		tokens[idx] = value
	}
	infoPath := sidecar.InfoPath(videoPath)
	if err := os.MkdirAll(filepath.Dir(infoPath), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "1\n" + strings.Join(tokens, " ") + "\n"
	if err := os.WriteFile(infoPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func seedInProgress(t *testing.T, f *fixture, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	record := &store.Record{
		SourcePath:       path,
		Status:           store.StatusInProgress,
		SourceSize:       info.Size(),
		SourceModifiedAt: info.ModTime(),
	}
	if err := f.store.Upsert(context.Background(), record); err != nil {
		t.Fatal(err)
	}
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
	t.Fatal("condition not reached in time")
}
