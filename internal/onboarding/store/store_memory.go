package store

import (
	"context"
	"fmt"
	"sync"

	"onboard/internal/onboarding"
	"onboard/pkg/platform/sentinel"
)

// MemoryStore keeps onboarding instances in memory for tests/dev.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*onboarding.Instance
}

// NewMemory constructs an empty in-memory instance store.
func NewMemory() *MemoryStore {
	return &MemoryStore{instances: make(map[string]*onboarding.Instance)}
}

func (s *MemoryStore) Create(_ context.Context, instance *onboarding.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[instance.ID]; ok {
		return fmt.Errorf("instance %q: %w", instance.ID, sentinel.ErrConflict)
	}
	copied := *instance
	s.instances[instance.ID] = &copied
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, instanceID string) (*onboarding.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if instance, ok := s.instances[instanceID]; ok {
		copied := *instance
		return &copied, nil
	}
	return nil, fmt.Errorf("instance %q: %w", instanceID, sentinel.ErrNotFound)
}
