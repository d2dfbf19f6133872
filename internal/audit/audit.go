// Package audit records who accessed which protected field. Entries are
// append-only and never carry the plaintext or ciphertext value.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action classifies what the caller did with the field.
type Action string

const (
	ActionEncrypt Action = "encrypt"
	ActionDecrypt Action = "decrypt"
)

// Entry is one access-trail row. Created once, never mutated or deleted.
type Entry struct {
	ID         uuid.UUID
	InstanceID string
	FieldKey   string
	Action     Action
	UserID     string
	Timestamp  time.Time
}

// Store is the append-only persistence behind the recorder.
//
// Error Contract:
// - Append returns wrapped infrastructure errors; callers decide whether to surface them
// - ListByInstance returns an empty slice when nothing matches
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByInstance(ctx context.Context, instanceID string) ([]Entry, error)
}
