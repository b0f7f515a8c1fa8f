package storage

import (
	"database/sql"
	"fmt"
)

type migration struct {
	Version     int
	Description string
	Up          string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "clients",
		Up: `CREATE TABLE clients (
			id            TEXT PRIMARY KEY CHECK (id <> ''),
			name          TEXT NOT NULL,
			contact_email TEXT NOT NULL DEFAULT '',
			tier          TEXT NOT NULL DEFAULT 'bronze',
			status        TEXT NOT NULL DEFAULT 'active',
			metadata      TEXT,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,
	},
	{
		Version:     2,
		Description: "devices",
		Up: `CREATE TABLE devices (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id     TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
			name          TEXT NOT NULL,
			type          TEXT NOT NULL DEFAULT 'workstation',
			rmm_device_id TEXT NOT NULL DEFAULT '',
			last_seen     INTEGER,
			metadata      TEXT,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX idx_devices_client ON devices(client_id);`,
	},
	{
		Version:     3,
		Description: "health check history",
		Up: `CREATE TABLE health_checks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL DEFAULT '',
			client_id  TEXT NOT NULL CHECK (client_id <> ''),
			check_kind TEXT NOT NULL,
			status     TEXT NOT NULL,
			message    TEXT NOT NULL DEFAULT '',
			value      REAL,
			threshold  REAL,
			details    TEXT,
			timestamp  INTEGER NOT NULL
		);
		CREATE INDEX idx_health_checks_client_ts ON health_checks(client_id, timestamp);`,
	},
	{
		Version:     4,
		Description: "per-client health check overrides",
		Up: `CREATE TABLE health_check_overrides (
			client_id      TEXT PRIMARY KEY,
			thresholds     TEXT,
			enabled_checks TEXT,
			updated_at     INTEGER NOT NULL
		)`,
	},
}

// LatestSchemaVersion is the version a fully migrated database reports.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

func runMigrations(db *sql.DB) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("failed to apply migration version %d (%s): %w", m.Version, m.Description, err)
		}
	}

	return nil
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`)
	return err
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
