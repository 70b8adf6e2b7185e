package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/keepsake-ai/keepsake/internal/storage"
	"github.com/keepsake-ai/keepsake/modules/storage/sqlite"
)

// Compile-time interface guard.
var _ storage.Store = (*sqlite.Store)(nil)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(sqlite.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetGetRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	v, err := store.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get(missing): unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("Get(missing) = %q, want nil", v)
	}

	if err := store.Set(ctx, "tier", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: unexpected error: %v", err)
	}

	v, err = store.Get(ctx, "tier")
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if string(v) != `{"a":1}` {
		t.Fatalf("Get = %q, want %q", v, `{"a":1}`)
	}

	// Overwrite is atomic per key.
	if err := store.Set(ctx, "tier", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set (overwrite): unexpected error: %v", err)
	}
	v, _ = store.Get(ctx, "tier")
	if string(v) != `{"a":2}` {
		t.Fatalf("Get after overwrite = %q, want %q", v, `{"a":2}`)
	}

	if err := store.Remove(ctx, "tier"); err != nil {
		t.Fatalf("Remove: unexpected error: %v", err)
	}
	v, _ = store.Get(ctx, "tier")
	if v != nil {
		t.Fatalf("Get after Remove = %q, want nil", v)
	}

	// Removing a missing key is a no-op.
	if err := store.Remove(ctx, "tier"); err != nil {
		t.Fatalf("Remove (missing): unexpected error: %v", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	store, err := sqlite.Open(sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	if err := store.Set(ctx, "memory.long", []byte("profile")); err != nil {
		t.Fatalf("Set: unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}

	// Reopen exercises the idempotent migration path too.
	reopened, err := sqlite.Open(sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("Open (reopen): unexpected error: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	v, err := reopened.Get(ctx, "memory.long")
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if string(v) != "profile" {
		t.Fatalf("Get after reopen = %q, want %q", v, "profile")
	}
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := sqlite.Open(sqlite.Config{}); err == nil {
		t.Fatal("Open with empty path: expected error, got nil")
	}
}

func TestOpen_RejectsNegativeBusyTimeout(t *testing.T) {
	t.Parallel()

	_, err := sqlite.Open(sqlite.Config{
		Path:        filepath.Join(t.TempDir(), "x.db"),
		BusyTimeout: -1,
	})
	if err == nil {
		t.Fatal("Open with negative busy_timeout: expected error, got nil")
	}
}
