// Package db provides session and mentor catalog storage on PostgreSQL, SQLite and
// in memory.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/mentor-match/internal/types"
)

// Store is the full storage surface used by the service
type Store interface {
	// Load returns the session with the given ID or ErrSessionNotFound.
	Load(ctx context.Context, id uuid.UUID) (*types.ChatSession, error)
	// Save writes s if its Version still matches the stored one and then increments
	// s.Version. A session with Version 0 is inserted.
	Save(ctx context.Context, s *types.ChatSession) error
	// ListMentors returns mentors matching filter ordered by ID.
	ListMentors(ctx context.Context, filter types.CatalogFilter) ([]types.MentorProfile, error)
	// UpsertMentors inserts or replaces mentors by ID.
	UpsertMentors(ctx context.Context, mentors []types.MentorProfile) error
	Ping(ctx context.Context) error
	Close() error
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping verifies database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}
