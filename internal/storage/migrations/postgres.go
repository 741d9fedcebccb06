package migrations

import (
	"context"
	"fmt"

	"solana-transfer-operator/internal/storage/postgres"
)

const pgVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// ApplyPostgres runs every embedded Postgres migration that has not been
// recorded in schema_migrations. Each file runs in its own transaction.
// Returns the names of the files applied by this call.
func ApplyPostgres(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	scripts, err := load("postgres")
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, pgVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, s := range scripts {
		ok, err := applyPostgresScript(ctx, pool, s)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, s.name)
		}
	}
	return applied, nil
}

func applyPostgresScript(ctx context.Context, pool *postgres.Pool, s script) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", s.name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, s.name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", s.name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, s.body); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", s.name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, s.name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", s.name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", s.name, err)
	}
	return true, nil
}
