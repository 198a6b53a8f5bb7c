// Package db provides PostgreSQL storage for generated captions.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultCaptionCacheTTL is how long a stored caption is served (30 days).
const DefaultCaptionCacheTTL = 30 * 24 * time.Hour

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool     *pgxpool.Pool
	cacheTTL time.Duration
}

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

	return &DB{pool: pool, cacheTTL: DefaultCaptionCacheTTL}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// SetCacheTTL changes how long stored captions are considered fresh.
func (db *DB) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		db.cacheTTL = ttl
	}
}

// EnsureSchema creates the caption table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, createCaptionsTable)
	if err != nil {
		return fmt.Errorf("failed to create image_captions table: %w", err)
	}
	return nil
}
