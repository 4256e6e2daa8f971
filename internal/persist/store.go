package persist

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Store is a durable key-value store for encoded snapshots.
//
// Put must be atomic: after it returns, readers see either the previous
// value or the new one in full. All methods honor context cancellation
// where the backend allows it.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

// Stamper is implemented by stores that know when a key was last written.
type Stamper interface {
	// UpdatedAt returns the time of the last Put for key, or ErrNotFound.
	UpdatedAt(ctx context.Context, key string) (time.Time, error)
}

// MemoryStore is a Store that lives for the duration of the process.
// It plays the role of session storage.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	stamps map[string]time.Time
	closed bool
}

// Ensure MemoryStore implements Store and Stamper.
var (
	_ Store   = (*MemoryStore)(nil)
	_ Stamper = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		stamps: make(map[string]time.Time),
	}
}

// Get returns a copy of the value for key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Put stores a copy of value under key.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.values[key] = bytes.Clone(value)
	s.stamps[key] = time.Now()
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	delete(s.values, key)
	delete(s.stamps, key)
	return nil
}

// Close marks the store closed. Values are dropped.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.values = nil
	s.stamps = nil
	return nil
}

// UpdatedAt returns when key was last written.
func (s *MemoryStore) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return time.Time{}, ErrClosed
	}
	at, ok := s.stamps[key]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return at, nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
