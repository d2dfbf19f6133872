package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Mirror is an optional secondary sink (e.g. a Kafka topic feeding the
// compliance pipeline). Publishing is fire-and-forget.
type Mirror interface {
	Publish(ctx context.Context, entry Entry)
}

// Recorder is the best-effort front of the access trail. A failed append is
// logged and counted but never propagated: an audit outage must not block
// legitimate decrypts. The entry is written after the primary operation has
// committed and is not transactionally coupled to it.
type Recorder struct {
	store  Store
	mirror Mirror
	logger *slog.Logger
	onDrop func()
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMirror mirrors every entry to a secondary sink after the primary append.
func WithMirror(mirror Mirror) RecorderOption {
	return func(r *Recorder) { r.mirror = mirror }
}

// WithDropHook is called whenever the primary append fails.
func WithDropHook(onDrop func()) RecorderOption {
	return func(r *Recorder) { r.onDrop = onDrop }
}

// NewRecorder constructs a Recorder over the given append-only store.
func NewRecorder(store Store, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry, filling in ID and timestamp when unset. A failed
// append is logged and dropped, never returned to the caller.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"error", err,
			"instance_id", entry.InstanceID,
			"field_key", entry.FieldKey,
			"action", string(entry.Action),
		)
		if r.onDrop != nil {
			r.onDrop()
		}
		return
	}

	if r.mirror != nil {
		r.mirror.Publish(ctx, entry)
	}
}
