// Package postgres provides PostgreSQL-based implementations of the harvest
// entity store and audit log on top of a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
	dsn  string

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32
}

// NewDB creates a new DB instance for dsn.
func NewDB(dsn string) *DB {
	return &DB{dsn: dsn}
}

// Open connects to the database and creates the schema if needed.
func (db *DB) Open(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(db.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	if db.MaxConns > 0 {
		cfg.MaxConns = db.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db.pool = pool

	if err := db.createSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Pool returns the underlying pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) createSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS entities (
			vertical TEXT NOT NULL,
			ref TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			subcategory TEXT NOT NULL DEFAULT '',
			fields JSONB NOT NULL DEFAULT '{}',
			fields_hash TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			last_checked_at TIMESTAMPTZ NOT NULL,
			last_scrape_status TEXT NOT NULL DEFAULT '',
			last_scrape_message TEXT NOT NULL DEFAULT '',
			last_scrape_run_id TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (vertical, ref)
		);

		CREATE INDEX IF NOT EXISTS idx_entities_last_checked_at ON entities(last_checked_at);
		CREATE INDEX IF NOT EXISTS idx_entities_run_id ON entities(last_scrape_run_id);

		CREATE TABLE IF NOT EXISTS audit_log (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			vertical TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			subcategory TEXT NOT NULL DEFAULT '',
			start_url TEXT NOT NULL DEFAULT '',
			ref TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_audit_log_run_id ON audit_log(run_id);
		CREATE INDEX IF NOT EXISTS idx_audit_log_ref ON audit_log(vertical, ref);
	`)
	return err
}
