package testsupport

import (
	"context"
	"testing"

	"filmpress/internal/config"
	"filmpress/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedRecord upserts a record with the given path and status for tests.
func SeedRecord(t testing.TB, st *store.Store, sourcePath string, status store.Status) *store.Record {
	t.Helper()

	record := &store.Record{SourcePath: sourcePath, Status: status}
	if err := st.Upsert(context.Background(), record); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return record
}
