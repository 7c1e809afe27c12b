// Package db is the store gateway: pooled PostgreSQL access with typed
// operations for matches, summaries, event facts, fights, aggregates and the
// backfill queue.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool configures a pgx connection pool for the collector services.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

// Store wraps the pool with the gateway's typed operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store gateway over an established pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies store reachability; used by pre-flight checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ErrNoRows is exposed for error checking.
var ErrNoRows = pgx.ErrNoRows
