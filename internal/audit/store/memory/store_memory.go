package memory

import (
	"context"
	"sync"

	"onboard/internal/audit"
)

// InMemoryStore keeps audit entries in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string][]audit.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.InstanceID] = append(s.entries[entry.InstanceID], entry)
	return nil
}

func (s *InMemoryStore) ListByInstance(_ context.Context, instanceID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Entry{}, s.entries[instanceID]...), nil
}

// ListAll returns every entry across instances (compliance dashboard use).
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Entry
	for _, instanceEntries := range s.entries {
		all = append(all, instanceEntries...)
	}
	return all, nil
}
