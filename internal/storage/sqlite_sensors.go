package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type sqliteSensorRepo struct {
	db *sql.DB
}

func (r *sqliteSensorRepo) Create(ctx context.Context, sensor *models.Sensor) error {
	now := time.Now().UTC()
	sensor.CreatedAt = now
	sensor.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensors (id, name, display_name, data_format, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sensor.ID, sensor.Name, sensor.DisplayName, sensor.DataFormat,
		sensor.LastSeen, sensor.CreatedAt, sensor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sensor: %w", err)
	}
	return nil
}

func (r *sqliteSensorRepo) GetByID(ctx context.Context, id string) (*models.Sensor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, data_format, last_seen, created_at, updated_at
		FROM sensors WHERE id = ?`, id)

	sensor, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sensor: %w", err)
	}
	return sensor, nil
}

func (r *sqliteSensorRepo) Update(ctx context.Context, sensor *models.Sensor) error {
	sensor.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sensors SET name = ?, display_name = ?, data_format = ?, updated_at = ?
		WHERE id = ?`,
		sensor.Name, sensor.DisplayName, sensor.DataFormat, sensor.UpdatedAt, sensor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sensor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteSensorRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sensor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteSensorRepo) List(ctx context.Context) ([]*models.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, display_name, data_format, last_seen, created_at, updated_at
		FROM sensors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}
	defer rows.Close()

	var sensors []*models.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, sensor)
	}
	return sensors, rows.Err()
}

func (r *sqliteSensorRepo) Touch(ctx context.Context, id string, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sensors SET last_seen = ?, updated_at = ? WHERE id = ?",
		seenAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch sensor: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row rowScanner) (*models.Sensor, error) {
	var s models.Sensor
	if err := row.Scan(&s.ID, &s.Name, &s.DisplayName, &s.DataFormat,
		&s.LastSeen, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
