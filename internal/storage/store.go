// Package storage defines the durable key-value store contract used by the
// memory tiers, with an in-memory implementation for tests.
package storage

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the underlying store could not complete a read or
// write. Callers must treat the operation as aborted with no partial change.
var ErrUnavailable = errors.New("storage: store unavailable")

// Store is a key-value persistence layer providing atomic per-key operations
// on named blobs. Implementations must be safe for concurrent use.
//
// No multi-key transactions are offered; callers that need ordered multi-key
// clears (e.g. factory reset) sequence individual Remove calls themselves.
type Store interface {
	// Get returns the value stored under key, or nil if the key does not
	// exist. A missing key is not an error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value atomically.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the key. Removing a missing key is a no-op.
	Remove(ctx context.Context, key string) error
}
