// Package memory provides in-process adapters used when no external store is configured.
package memory

import (
	"context"
	"sync"

	"github.com/target/demobank-api/internal/ports"
)

// SnapshotStore is a goroutine-safe in-memory ports.SnapshotStore.
// Contents are lost on restart.
type SnapshotStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{values: make(map[string][]byte)}
}

func (s *SnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *SnapshotStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *SnapshotStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len reports the number of stored keys.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
