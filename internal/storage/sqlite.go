package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string

	sensors  *sqliteSensorRepo
	rules    *sqliteRuleRepo
	readings *sqliteReadingRepo
	events   *sqliteEventRepo
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent checker and API writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	s.db = db
	s.sensors = &sqliteSensorRepo{db: db}
	s.rules = &sqliteRuleRepo{db: db}
	s.readings = &sqliteReadingRepo{db: db}
	s.events = &sqliteEventRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// Sensors returns the sensor repository.
func (s *SQLiteStorage) Sensors() SensorRepository { return s.sensors }

// Rules returns the alarm rule repository.
func (s *SQLiteStorage) Rules() RuleRepository { return s.rules }

// Readings returns the reading repository.
func (s *SQLiteStorage) Readings() ReadingRepository { return s.readings }

// Events returns the alarm event repository.
func (s *SQLiteStorage) Events() EventRepository { return s.events }
