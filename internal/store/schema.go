// Package store persists reconstructed replays.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    team TEXT NOT NULL,
    ticks INTEGER NOT NULL,
    config TEXT,          -- JSON
    created_at TEXT NOT NULL
);

-- One row per tick and platoon
CREATE TABLE IF NOT EXISTS complexity_states (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    tick INTEGER NOT NULL,
    platoon TEXT NOT NULL,
    vehicle_type TEXT NOT NULL,
    primitive TEXT NOT NULL,
    centroid_x REAL NOT NULL,
    centroid_y REAL NOT NULL,
    target_x REAL,
    target_y REAL,
    next_x REAL,
    next_y REAL,
    visibility INTEGER NOT NULL,
    engage INTEGER NOT NULL,
    hit_probability REAL DEFAULT 0,
    node INTEGER,         -- nearest graph node, NULL without a node table
    vehicles TEXT,        -- JSON array
    PRIMARY KEY (session_id, tick, platoon)
);
CREATE INDEX IF NOT EXISTS idx_states_platoon ON complexity_states(session_id, platoon);

CREATE TABLE IF NOT EXISTS replay_events (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    tick INTEGER NOT NULL,
    type TEXT NOT NULL,
    platoon TEXT NOT NULL,
    payload TEXT,         -- JSON
    PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_events_type ON replay_events(session_id, type);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables on a fresh database and refuses databases
// written by a newer schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}
