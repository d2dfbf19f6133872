// Package response models the shared onboarding response table: one row per
// (instance, field) pair holding either an encrypted blob or plaintext.
package response

import (
	"context"
	"time"
)

// Field is one stored answer. When Sensitive is true, Value is always the
// encoded nonce‖ciphertext‖tag blob, never raw text; when false, Value is
// the plaintext verbatim. Sensitive is set at first write and not toggled.
type Field struct {
	InstanceID string
	FieldKey   string
	Section    string
	Value      string
	Sensitive  bool
	UpdatedAt  time.Time
}

// Store persists fields keyed by (instance_id, field_key).
//
// Upsert replaces the whole row; last writer wins, there is no version
// check. Concurrent writers to the same pair race and silently overwrite —
// that is the accepted concurrency policy of the shared response table.
//
// Error Contract:
// - Fetch returns sentinel.ErrNotFound (wrapped) when no row exists
// - infrastructure failures are returned wrapped with context
type Store interface {
	Upsert(ctx context.Context, field *Field) error
	Fetch(ctx context.Context, instanceID, fieldKey string) (*Field, error)
}
