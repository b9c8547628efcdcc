package database

import (
	"context"
	"errors"
)

// ErrNotConnected is returned when a repository method is called without a
// live database connection, e.g. through a typed-nil receiver wrapped in an
// interface.
var ErrNotConnected = errors.New("database connection is not configured")

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// connected reports whether the repository can reach the database. It is
// safe on a nil receiver.
func (r *Repository) connected() bool {
	return r != nil && r.db != nil && r.db.Pool != nil
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// GetDB returns the underlying DB instance for direct access
func (r *Repository) GetDB() *DB {
	return r.db
}
