// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Sensors() SensorRepository
	Rules() RuleRepository
	Readings() ReadingRepository
	Events() EventRepository
}

// SensorRepository defines operations for the sensor registry.
type SensorRepository interface {
	Create(ctx context.Context, sensor *models.Sensor) error
	GetByID(ctx context.Context, id string) (*models.Sensor, error)
	Update(ctx context.Context, sensor *models.Sensor) error
	// Delete removes a sensor; rules and readings cascade.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Sensor, error)
	Touch(ctx context.Context, id string, seenAt time.Time) error
}

// RuleRepository defines operations for alarm rule management.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.AlarmRule) error
	GetByID(ctx context.Context, id int64) (*models.AlarmRule, error)
	Update(ctx context.Context, rule *models.AlarmRule) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.AlarmRule, error)
	ListBySensor(ctx context.Context, sensorID string) ([]*models.AlarmRule, error)
	ListEnabledBySensor(ctx context.Context, sensorID string) ([]*models.AlarmRule, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	// SetMutedUntil sets or clears (nil) a rule's mute window.
	SetMutedUntil(ctx context.Context, id int64, until *time.Time) error
}

// ReadingRepository defines operations for sensor reading history.
type ReadingRepository interface {
	Insert(ctx context.Context, reading *models.Reading) error
	// LatestForSensor returns up to limit readings ordered newest first.
	LatestForSensor(ctx context.Context, sensorID string, limit int) ([]*models.Reading, error)
	// History returns readings after the given time, ordered oldest first.
	History(ctx context.Context, sensorID string, from time.Time) ([]*models.Reading, error)
	CountForSensor(ctx context.Context, sensorID string) (int64, error)
	// DeleteOlderThan prunes history and returns the rows removed.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	DeleteForSensor(ctx context.Context, sensorID string) error
}

// EventRepository defines operations for the dispatched-alarm audit trail.
type EventRepository interface {
	Create(ctx context.Context, event *models.AlarmEvent) error
	List(ctx context.Context, limit, offset int) ([]*models.AlarmEvent, int64, error)
	ListBySensor(ctx context.Context, sensorID string, limit, offset int) ([]*models.AlarmEvent, int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
