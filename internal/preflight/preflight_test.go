package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filmpress/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Library root", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "read/write ok") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("Library root", filepath.Join(t.TempDir(), "missing"))
	if result.Passed {
		t.Fatal("expected failure for a missing directory")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	result := CheckDirectoryAccess("Library root", file)
	if result.Passed {
		t.Fatal("expected failure for a non-directory")
	}
	if !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDatabase_OK(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	result := CheckDatabase(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "0 records") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDatabase_PathIsDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.DatabasePath(), 0o755); err != nil {
		t.Fatalf("mkdir database path: %v", err)
	}

	result := CheckDatabase(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure when the database path is a directory")
	}
}

func TestCheckHardware_Disabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	result := CheckHardware(context.Background(), cfg)
	if !result.Passed {
		t.Fatal("hardware check is informational and must pass")
	}
	if !strings.Contains(result.Detail, "disabled") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
	if !strings.Contains(result.Detail, "software") {
		t.Fatalf("expected the software ladder in %q", result.Detail)
	}
}

func TestRunAll_AllChecksPass(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	results := RunAll(context.Background(), cfg)
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ReportsMissingLibraryRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := os.RemoveAll(testsupport.LibraryDir(cfg)); err != nil {
		t.Fatalf("remove library dir: %v", err)
	}

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 {
		t.Fatalf("expected one failure, got %+v", failed)
	}
	if failed[0].Name != "Library root" {
		t.Fatalf("unexpected failing check %q", failed[0].Name)
	}
}

func TestRunAll_ReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Encoding.FFmpegBinary = filepath.Join(testsupport.BaseDir(cfg), "no-such-ffmpeg")
	cfg.Encoding.FFprobeBinary = filepath.Join(testsupport.BaseDir(cfg), "no-such-ffprobe")

	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 2 {
		t.Fatalf("expected two failures, got %+v", failed)
	}
	for _, result := range failed {
		if result.Name != "FFmpeg" && result.Name != "FFprobe" {
			t.Fatalf("unexpected failing check %q", result.Name)
		}
	}
}
