package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// migration represents a single schema migration.
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of schema migrations. Append only;
// never edit a shipped migration.
var migrations = []migration{
	{
		version: 1,
		name:    "create_sensors",
		up: `
			CREATE TABLE IF NOT EXISTS sensors (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				display_name TEXT NOT NULL DEFAULT '',
				data_format INTEGER NOT NULL DEFAULT 0,
				last_seen DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		version: 2,
		name:    "create_alarm_rules",
		up: `
			CREATE TABLE IF NOT EXISTS alarm_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				sensor_id TEXT NOT NULL,
				type INTEGER NOT NULL,
				low REAL NOT NULL DEFAULT 0,
				high REAL NOT NULL DEFAULT 0,
				enabled INTEGER NOT NULL DEFAULT 1,
				description TEXT NOT NULL DEFAULT '',
				muted_until DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (sensor_id) REFERENCES sensors(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_alarm_rules_sensor ON alarm_rules(sensor_id);
			CREATE INDEX IF NOT EXISTS idx_alarm_rules_enabled ON alarm_rules(sensor_id, enabled);
		`,
	},
	{
		version: 3,
		name:    "create_readings",
		up: `
			CREATE TABLE IF NOT EXISTS readings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				sensor_id TEXT NOT NULL,
				data_format INTEGER NOT NULL DEFAULT 0,
				temperature REAL,
				humidity REAL,
				pressure REAL,
				rssi REAL,
				movement_counter INTEGER,
				accel_x REAL,
				accel_y REAL,
				accel_z REAL,
				voltage REAL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (sensor_id) REFERENCES sensors(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_readings_sensor_time ON readings(sensor_id, created_at DESC);
		`,
	},
	{
		version: 4,
		name:    "create_alarm_events",
		up: `
			CREATE TABLE IF NOT EXISTS alarm_events (
				id TEXT PRIMARY KEY,
				rule_id INTEGER NOT NULL,
				sensor_id TEXT NOT NULL,
				type INTEGER NOT NULL,
				message TEXT NOT NULL,
				triggered_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_alarm_events_sensor ON alarm_events(sensor_id, triggered_at DESC);
			CREATE INDEX IF NOT EXISTS idx_alarm_events_time ON alarm_events(triggered_at);
		`,
	},
}

// runMigrations applies all pending migrations in order.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to query schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.up); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}

		log.Printf("applied migration %d: %s", m.version, m.name)
	}

	return nil
}
