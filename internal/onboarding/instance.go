// Package onboarding exposes the minimal view of onboarding instances this
// subsystem needs: which client account owns an instance. The wizard and
// approval workflow that mutate instances live elsewhere.
package onboarding

import (
	"context"
	"time"
)

// Instance is one client's in-progress onboarding process. Sensitive field
// rows belong to an instance.
type Instance struct {
	ID        string
	ClientID  string
	CreatedAt time.Time
}

// Store resolves instances for ownership checks.
//
// Error Contract:
// - FindByID returns sentinel.ErrNotFound (wrapped) when the instance does not exist
// - infrastructure failures are returned wrapped with context
type Store interface {
	Create(ctx context.Context, instance *Instance) error
	FindByID(ctx context.Context, instanceID string) (*Instance, error)
}
