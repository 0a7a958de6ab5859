package store

import (
	"context"
	"sync"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
)

// MemoryStore keeps the registry state in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state model.RegistryState
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements RegistryStore.
func (s *MemoryStore) Load(ctx context.Context) (model.RegistryState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

// Save implements RegistryStore.
func (s *MemoryStore) Save(ctx context.Context, state model.RegistryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// Ping implements RegistryStore.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements RegistryStore.
func (s *MemoryStore) Close() error {
	return nil
}
