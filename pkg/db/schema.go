package db

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Devices declared in configuration, mirrored on every start
CREATE TABLE IF NOT EXISTS devices (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    abbrev      TEXT NOT NULL,
    address     TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Last level each device reported
CREATE TABLE IF NOT EXISTS device_levels (
    device_id   TEXT PRIMARY KEY REFERENCES devices(id) ON DELETE CASCADE,
    level       INTEGER NOT NULL CHECK (level >= 0 AND level < 8),
    reported_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_devices_abbrev ON devices(abbrev);
`

// migrations[i] brings the schema from version i to i+1.
var migrations = []string{schemaV1}

// Migrate applies every migration newer than the recorded schema version,
// each in its own transaction.
func (db *DB) Migrate(ctx context.Context) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		next := v + 1
		err := db.Tx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, next)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying schema v%d: %w", next, err)
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version, 0 for a fresh file.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'schema_version')`,
	).Scan(&exists)
	if err != nil || !exists {
		return 0, err
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}
