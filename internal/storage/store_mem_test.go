package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/keepsake-ai/keepsake/internal/storage"
)

// Compile-time interface guard.
var _ storage.Store = (*storage.MemStore)(nil)

func TestMemStore_GetMissingKey(t *testing.T) {
	t.Parallel()

	store := storage.NewMemStore()

	v, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("Get(absent) = %q, want nil", v)
	}
}

func TestMemStore_SetGetRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemStore()

	if err := store.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set: unexpected error: %v", err)
	}

	v, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: unexpected error: %v", err)
	}
	if string(v) != "v1" {
		t.Fatalf("Get = %q, want %q", v, "v1")
	}

	// Overwrite.
	if err := store.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Set (overwrite): unexpected error: %v", err)
	}
	v, _ = store.Get(ctx, "k")
	if string(v) != "v2" {
		t.Fatalf("Get after overwrite = %q, want %q", v, "v2")
	}

	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: unexpected error: %v", err)
	}
	v, _ = store.Get(ctx, "k")
	if v != nil {
		t.Fatalf("Get after Remove = %q, want nil", v)
	}

	// Removing a missing key is a no-op.
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove (missing): unexpected error: %v", err)
	}
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemStore()

	orig := []byte("original")
	if err := store.Set(ctx, "k", orig); err != nil {
		t.Fatalf("Set: unexpected error: %v", err)
	}

	// Mutating the caller's slice must not affect the stored value.
	orig[0] = 'X'

	v, _ := store.Get(ctx, "k")
	if string(v) != "original" {
		t.Fatalf("stored value mutated: got %q", v)
	}

	// Mutating the returned slice must not affect the stored value either.
	v[0] = 'Y'
	v2, _ := store.Get(ctx, "k")
	if string(v2) != "original" {
		t.Fatalf("stored value mutated via Get result: got %q", v2)
	}
}

func TestMemStore_FailNext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemStore()

	store.FailNext()
	if err := store.Set(ctx, "k", []byte("v")); !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("Set after FailNext: error = %v, want ErrUnavailable", err)
	}

	// Failure is one-shot.
	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set after consumed failure: unexpected error: %v", err)
	}
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n)
			for j := 0; j < 50; j++ {
				_ = store.Set(ctx, key, []byte(fmt.Sprintf("v-%d", j)))
				_, _ = store.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if got := store.Len(); got != 8 {
		t.Fatalf("Len() = %d, want 8", got)
	}
}
