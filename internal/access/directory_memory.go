package access

import (
	"context"
	"sync"
)

// MemoryDirectory is an in-memory role directory for dev mode and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	roles map[string][]Role
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{roles: make(map[string][]Role)}
}

// Grant adds a role to the user's role-set.
func (d *MemoryDirectory) Grant(userID string, role Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.roles[userID] {
		if existing == role {
			return
		}
	}
	d.roles[userID] = append(d.roles[userID], role)
}

func (d *MemoryDirectory) ResolveRoles(_ context.Context, userID string) ([]Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Role{}, d.roles[userID]...), nil
}
