package dedup

import (
	"context"
	"sync"

	"bridge-reconcile-go/internal/store"
)

var _ store.MarkerStore = (*MemoryMarkerStore)(nil)

// MemoryMarkerStore is a process-local marker store for single-node runs and the CLI.
type MemoryMarkerStore struct {
	mu      sync.RWMutex
	markers map[string]string
}

func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{markers: make(map[string]string)}
}

func (s *MemoryMarkerStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.markers[key]
	return value, ok, nil
}

func (s *MemoryMarkerStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[key] = value
	return nil
}

func (s *MemoryMarkerStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, key)
	return nil
}
