package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one schema step. Each applies inside its own transaction
// and is recorded in schema_migrations so it never runs twice.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// schemaMigrations lists every migration in apply order.
var schemaMigrations = []migration{
	{version: 1, name: "initial_schema", apply: migrateV001},
}

// connectionPragmas run on every open, before any migration. WAL keeps
// readers unblocked during observation writes; foreign keys guard the
// visits → places reference.
var connectionPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
}

// MigrationRunner brings a recall database up to the current schema.
type MigrationRunner struct {
	db *sql.DB
}

// NewMigrationRunner creates a runner over an opened database.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

// Run applies the connection pragmas, ensures the schema_migrations
// tracking table, then applies each migration not yet recorded.
func (r *MigrationRunner) Run(ctx context.Context) error {
	for _, pragma := range connectionPragmas {
		if _, err := r.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range schemaMigrations {
		applied, err := r.isApplied(ctx, m.version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}

		if err := r.applyOne(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

func (r *MigrationRunner) isApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyOne executes a migration inside a transaction and records it.
func (r *MigrationRunner) applyOne(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.apply(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.version, m.name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
