package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"onboard/internal/response"
	"onboard/pkg/platform/sentinel"
)

// PostgresStore persists response fields in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE response_fields (
//	    instance_id TEXT NOT NULL,
//	    field_key   TEXT NOT NULL,
//	    section     TEXT NOT NULL,
//	    value       TEXT NOT NULL,
//	    sensitive   BOOLEAN NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (instance_id, field_key)
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed response store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert inserts or wholesale-replaces the row for (instance_id, field_key).
// Unconditional overwrite: no version column, last writer wins.
func (s *PostgresStore) Upsert(ctx context.Context, field *response.Field) error {
	updatedAt := field.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	query := `
		INSERT INTO response_fields (instance_id, field_key, section, value, sensitive, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (instance_id, field_key) DO UPDATE SET
			section    = EXCLUDED.section,
			value      = EXCLUDED.value,
			sensitive  = EXCLUDED.sensitive,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		field.InstanceID,
		field.FieldKey,
		field.Section,
		field.Value,
		field.Sensitive,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert response field: %w", err)
	}
	return nil
}

func (s *PostgresStore) Fetch(ctx context.Context, instanceID, fieldKey string) (*response.Field, error) {
	query := `
		SELECT instance_id, field_key, section, value, sensitive, updated_at
		FROM response_fields
		WHERE instance_id = $1 AND field_key = $2
	`
	var field response.Field
	err := s.db.QueryRowContext(ctx, query, instanceID, fieldKey).Scan(
		&field.InstanceID,
		&field.FieldKey,
		&field.Section,
		&field.Value,
		&field.Sensitive,
		&field.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("field %q/%q: %w", instanceID, fieldKey, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch response field: %w", err)
	}
	return &field, nil
}
