package scan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"filmpress/internal/logging"
	"filmpress/internal/scan"
	"filmpress/internal/testsupport"
)

func writeTree(t *testing.T, root string, paths map[string]int64) {
	t.Helper()
	for rel, size := range paths {
		testsupport.WriteFile(t, filepath.Join(root, rel), size)
	}
}

func paths(files []scan.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestDiscoverFindsVideosAndPrunesCompanionDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int64{
		"movies/alpha.mkv":                              2048,
		"movies/beta.mp4":                               1024,
		"movies/notes.txt":                              64,
		"movies/@eaDir/alpha.mkv/SYNOPHOTO_FILM_H.mp4":  4096,
		"movies/@eaDir/alpha.mkv/SYNOINDEX_MEDIA_INFO":  128,
		"#recycle/deleted.mkv":                          512,
		"shows/season1/.hidden.mkv":                     256,
		"shows/season1/episode.m4v":                     999,
	})

	walker := scan.NewWalker([]string{root}, logging.NewNop())
	files, err := walker.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(root, "movies/alpha.mkv"),
		filepath.Join(root, "movies/beta.mp4"),
		filepath.Join(root, "shows/season1/episode.m4v"),
	}
	got := paths(files)
	if len(got) != len(want) {
		t.Fatalf("unexpected discovery %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v, want %v", got, want)
		}
	}

	if files[0].Size != 2048 {
		t.Fatalf("expected size carried through, got %d", files[0].Size)
	}
	if files[0].ModTime.IsZero() {
		t.Fatal("expected mod time carried through")
	}
}

func TestDiscoverDeduplicatesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int64{"library/video.mkv": 100})

	walker := scan.NewWalker([]string{root, filepath.Join(root, "library")}, logging.NewNop())
	files, err := walker.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one entry across overlapping roots, got %v", paths(files))
	}
}

func TestDiscoverSkipsMissingRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int64{"ok.mp4": 10})

	walker := scan.NewWalker([]string{filepath.Join(root, "does-not-exist"), root}, logging.NewNop())
	files, err := walker.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected the healthy root to still be scanned, got %v", paths(files))
	}
}

func TestDiscoverHonorsCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]int64{"ok.mp4": 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	walker := scan.NewWalker([]string{root}, logging.NewNop())
	if _, err := walker.Discover(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestStat(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "clip.mkv")
	testsupport.WriteFile(t, path, 321)

	file, err := scan.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if file.Path != path || file.Size != 321 || file.ModTime.IsZero() {
		t.Fatalf("unexpected stat result %+v", file)
	}

	if _, err := scan.Stat(filepath.Join(root, "missing.mkv")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
