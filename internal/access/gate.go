// Package access decides who may write and who may decrypt protected fields.
// Identity comes from the verified bearer token; the role-set comes from the
// identity provider via the Directory capability.
package access

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"onboard/internal/onboarding"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/sentinel"
)

// Role is a privilege granted by the identity provider.
type Role string

const (
	// RoleAdmin may write to any instance and is the only role allowed to
	// decrypt sensitive fields.
	RoleAdmin Role = "admin"

	// RoleClient is an ordinary portal user; writes are limited to
	// instances owned by the caller's client account.
	RoleClient Role = "client"
)

// Identity is the resolved caller: who they are and which client account
// they belong to.
type Identity struct {
	UserID   string
	ClientID string
}

// Directory resolves a user's role-set. Implemented by the identity
// provider client; narrow so the gate is unit-testable against a fake.
type Directory interface {
	ResolveRoles(ctx context.Context, userID string) ([]Role, error)
}

// Gate approves or denies field operations.
type Gate struct {
	roles     Directory
	instances onboarding.Store
}

func NewGate(roles Directory, instances onboarding.Store) *Gate {
	return &Gate{roles: roles, instances: instances}
}

// AuthorizeWrite permits a write when the caller is an administrator or
// their client account owns the target instance. A missing instance is a
// not-found, surfaced before any ciphertext is produced.
func (g *Gate) AuthorizeWrite(ctx context.Context, ident Identity, instanceID string) error {
	var (
		roles    []Role
		instance *onboarding.Instance
	)

	// Role-set and ownership are independent lookups; fetch both at once.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		roles, err = g.roles.ResolveRoles(egCtx, ident.UserID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		instance, err = g.instances.FindByID(egCtx, instanceID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "onboarding instance not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "instance lookup failed")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	if hasRole(roles, RoleAdmin) {
		return nil
	}
	if ident.ClientID != "" && ident.ClientID == instance.ClientID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller is neither an administrator nor the instance owner")
}

// AuthorizeDecrypt permits decryption of sensitive values only for
// administrators, regardless of ownership. Reading a protected answer is
// strictly more privileged than writing it.
func (g *Gate) AuthorizeDecrypt(ctx context.Context, ident Identity) error {
	roles, err := g.roles.ResolveRoles(ctx, ident.UserID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "role lookup failed")
	}
	if !hasRole(roles, RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "administrative role required to decrypt")
	}
	return nil
}

func hasRole(roles []Role, want Role) bool {
	for _, role := range roles {
		if role == want {
			return true
		}
	}
	return false
}
