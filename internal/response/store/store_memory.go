package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"onboard/internal/response"
	"onboard/pkg/platform/sentinel"
)

type fieldKey struct {
	instanceID string
	fieldKey   string
}

// MemoryStore keeps response fields in memory for tests/dev.
type MemoryStore struct {
	mu     sync.RWMutex
	fields map[fieldKey]*response.Field
}

// NewMemory constructs an empty in-memory response store.
func NewMemory() *MemoryStore {
	return &MemoryStore{fields: make(map[fieldKey]*response.Field)}
}

func (s *MemoryStore) Upsert(_ context.Context, field *response.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *field
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = time.Now()
	}
	s.fields[fieldKey{field.InstanceID, field.FieldKey}] = &copied
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, instanceID, key string) (*response.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if field, ok := s.fields[fieldKey{instanceID, key}]; ok {
		copied := *field
		return &copied, nil
	}
	return nil, fmt.Errorf("field %q/%q: %w", instanceID, key, sentinel.ErrNotFound)
}
