// Package db provides optional PostgreSQL persistence of pipeline run
// records. The pipeline never depends on it: when no database is configured
// the coordinator runs without a store.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
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

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the run-record tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id       UUID PRIMARY KEY,
			tenant_id    TEXT NOT NULL,
			session_id   TEXT,
			job_id       TEXT,
			neo4j_job_id TEXT,
			status       TEXT NOT NULL,
			error_kind   TEXT,
			error_msg    TEXT,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS run_motifs (
			run_id     UUID NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
			motifs     JSONB NOT NULL,
			statistics JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (run_id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
