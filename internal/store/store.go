package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/0001_init.sql
var initSchema string

// Store wraps a pgx connection pool and exposes the freshness/geo/job
// queries the enrichment pipeline builds on. It is the sole owner of
// persistent state (spec §3).
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and runs the embedded schema migration.
// Migrations are idempotent (CREATE ... IF NOT EXISTS) so Open is safe
// to call from every process that starts against the same database.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Msg("store: connected and migrated")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, initSchema); err != nil {
		return fmt.Errorf("run migration: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Health reports whether the database is reachable, for /health and
// /ready endpoints.
func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying connection pool for integration tests
// that need to seed fixture rows directly.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
