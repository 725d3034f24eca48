package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the initial recall schema: the places aggregate,
// the visit log, and the supporting indexes. Every statement uses
// IF NOT EXISTS for idempotency. Timestamps on places/visits are stored
// as epoch milliseconds so ranking math never round-trips through text.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS places (
			guid          TEXT PRIMARY KEY,
			url           TEXT NOT NULL UNIQUE,
			title         TEXT NOT NULL DEFAULT '',
			visit_count   INTEGER NOT NULL DEFAULT 0,
			frecency      INTEGER NOT NULL DEFAULT 0,
			last_visit_at INTEGER,
			icon_url      TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS visits (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			place_guid TEXT NOT NULL REFERENCES places(guid) ON DELETE CASCADE,
			visit_type TEXT NOT NULL DEFAULT 'link',
			visited_at INTEGER NOT NULL,
			weight     REAL NOT NULL DEFAULT 1.0,
			is_error   BOOLEAN NOT NULL DEFAULT 0,
			referrer   TEXT NOT NULL DEFAULT '',
			is_remote  BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_places_url        ON places(url)`,
		`CREATE INDEX IF NOT EXISTS idx_places_frecency   ON places(frecency DESC, last_visit_at DESC, url)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_place      ON visits(place_guid, visited_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_visited_at ON visits(visited_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
