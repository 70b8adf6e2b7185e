package storage

import (
	"context"
	"sync"
)

// MemStore is a thread-safe, in-memory implementation of Store.
// It is the default for tests; production deployments use the SQLite module.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// failNext, when set, makes the next operation return ErrUnavailable.
	// Used by tests to simulate storage outages.
	failNext bool
}

// NewMemStore creates a new empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// FailNext makes the next store operation fail with ErrUnavailable.
func (s *MemStore) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *MemStore) takeFailure() bool {
	if s.failNext {
		s.failNext = false
		return true
	}
	return false
}

// Get returns a copy of the value stored under key, or nil if absent.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.takeFailure() {
		return nil, ErrUnavailable
	}

	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Set stores a copy of value under key.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.takeFailure() {
		return ErrUnavailable
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

// Remove deletes the key. Removing a missing key is a no-op.
func (s *MemStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.takeFailure() {
		return ErrUnavailable
	}

	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
