package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
// Timestamps are stored as unix milliseconds so range scans compare numerically.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Components table
			CREATE TABLE IF NOT EXISTS components (
				id INTEGER PRIMARY KEY,
				display_name TEXT NOT NULL,
				kind TEXT NOT NULL,
				active INTEGER NOT NULL DEFAULT 1
			);

			-- Sensor samples
			CREATE TABLE IF NOT EXISTS samples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				ts_ms INTEGER NOT NULL,
				component_id INTEGER NOT NULL,
				metric TEXT NOT NULL,
				value REAL NOT NULL
			);

			-- Threshold breach log
			CREATE TABLE IF NOT EXISTS threshold_breaches (
				id TEXT PRIMARY KEY,
				ts_ms INTEGER NOT NULL,
				metric TEXT NOT NULL,
				value REAL NOT NULL,
				threshold REAL NOT NULL,
				condition TEXT NOT NULL,
				component_id INTEGER NOT NULL
			);

			-- Actuator activation log
			CREATE TABLE IF NOT EXISTS actuator_activations (
				id TEXT PRIMARY KEY,
				ts_ms INTEGER NOT NULL,
				component_id INTEGER NOT NULL
			);

			-- Threshold configuration (single row)
			CREATE TABLE IF NOT EXISTS thresholds (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				temp_min REAL NOT NULL,
				temp_max REAL NOT NULL,
				humidity_min REAL NOT NULL,
				humidity_max REAL NOT NULL,
				notify_global INTEGER NOT NULL DEFAULT 1,
				notify_temperature INTEGER NOT NULL DEFAULT 1,
				notify_humidity INTEGER NOT NULL DEFAULT 1,
				updated_at_ms INTEGER NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_samples_metric_ts ON samples(metric, ts_ms);
			CREATE INDEX IF NOT EXISTS idx_breaches_ts ON threshold_breaches(ts_ms);
			CREATE INDEX IF NOT EXISTS idx_activations_ts ON actuator_activations(ts_ms);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UnixMilli(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
