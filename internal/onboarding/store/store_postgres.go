package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"onboard/internal/onboarding"
	"onboard/pkg/platform/sentinel"
)

// PostgresStore persists onboarding instances in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE onboarding_instances (
//	    id         TEXT PRIMARY KEY,
//	    client_id  TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed instance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, instance *onboarding.Instance) error {
	query := `
		INSERT INTO onboarding_instances (id, client_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.ExecContext(ctx, query, instance.ID, instance.ClientID, instance.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("instance %q: %w", instance.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert onboarding instance: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, instanceID string) (*onboarding.Instance, error) {
	query := `
		SELECT id, client_id, created_at
		FROM onboarding_instances
		WHERE id = $1
	`
	var instance onboarding.Instance
	err := s.db.QueryRowContext(ctx, query, instanceID).Scan(
		&instance.ID,
		&instance.ClientID,
		&instance.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instance %q: %w", instanceID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find onboarding instance: %w", err)
	}
	return &instance, nil
}
