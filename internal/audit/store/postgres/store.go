package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"onboard/internal/audit"
)

// Store persists audit entries in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE field_access_log (
//	    id          UUID PRIMARY KEY,
//	    instance_id TEXT NOT NULL,
//	    field_key   TEXT NOT NULL,
//	    action      TEXT NOT NULL,
//	    user_id     TEXT NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX field_access_log_instance_idx ON field_access_log (instance_id, occurred_at);
//
// Rows are only ever inserted; there is no update or delete path.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	query := `
		INSERT INTO field_access_log (id, instance_id, field_key, action, user_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		id,
		entry.InstanceID,
		entry.FieldKey,
		string(entry.Action),
		entry.UserID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByInstance(ctx context.Context, instanceID string) ([]audit.Entry, error) {
	query := `
		SELECT id, instance_id, field_key, action, user_id, occurred_at
		FROM field_access_log
		WHERE instance_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var action string
		if err := rows.Scan(
			&entry.ID,
			&entry.InstanceID,
			&entry.FieldKey,
			&action,
			&entry.UserID,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = audit.Action(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
