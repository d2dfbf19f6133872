package access

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresDirectory resolves role-sets from the user_roles table, which the
// identity provider provisioning job keeps in sync.
//
// Schema:
//
//	CREATE TABLE user_roles (
//	    user_id TEXT NOT NULL,
//	    role    TEXT NOT NULL,
//	    PRIMARY KEY (user_id, role)
//	);
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory constructs a directory over the user_roles table.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// ResolveRoles returns the caller's role-set. An unknown user resolves to an
// empty set rather than an error; the gate treats no roles as no privilege.
func (d *PostgresDirectory) ResolveRoles(ctx context.Context, userID string) ([]Role, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}
