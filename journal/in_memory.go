package journal

import (
	"context"
	"sync"
)

// InMemoryStore is a process-local Store useful for tests, examples and
// single-process setups. It keeps the blob in memory guarded by a mutex and
// copies data on write and read so callers cannot mutate stored bytes.
//
// Nothing survives a restart; production deployments use a durable backend.
type InMemoryStore struct {
	mu     sync.RWMutex
	data   []byte
	stored bool
	writes int
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Read returns a copy of the stored blob or ErrNotFound.
func (s *InMemoryStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.stored {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return cp, nil
}

// Write stores a copy of data.
func (s *InMemoryStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data = cp
	s.stored = true
	s.writes++
	return nil
}

// Writes returns how many writes were accepted.
func (s *InMemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
