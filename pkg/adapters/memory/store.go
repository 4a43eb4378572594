package memory

import (
	"context"
	"sync"

	"github.com/aretw0/helix/pkg/domain"
)

// Store implements ports.CacheStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[domain.Collection]domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[domain.Collection]domain.Snapshot),
	}
}

// Save replaces the snapshot in memory.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	// Copy to ensure isolation, similar to serialization
	copied := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snap.Collection] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, c domain.Collection) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[c]
	if !ok {
		return domain.Snapshot{}, domain.ErrNotCached
	}

	// Copy on read so callers can't mutate store state through the shared slice
	return snap.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, c domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, c)
	return nil
}

// List returns cached collections.
func (s *Store) List(ctx context.Context) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cols := make([]domain.Collection, 0, len(s.data))
	for c := range s.data {
		cols = append(cols, c)
	}
	return cols, nil
}
