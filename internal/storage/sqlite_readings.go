package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

type sqliteReadingRepo struct {
	db *sql.DB
}

const readingColumns = "id, sensor_id, data_format, temperature, humidity, pressure, rssi, movement_counter, accel_x, accel_y, accel_z, voltage, created_at"

func (r *sqliteReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO readings (sensor_id, data_format, temperature, humidity, pressure, rssi, movement_counter, accel_x, accel_y, accel_z, voltage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.SensorID, reading.DataFormat, reading.Temperature, reading.Humidity,
		reading.Pressure, reading.RSSI, reading.MovementCounter,
		reading.AccelX, reading.AccelY, reading.AccelZ, reading.Voltage, reading.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get reading id: %w", err)
	}
	reading.ID = id
	return nil
}

func (r *sqliteReadingRepo) LatestForSensor(ctx context.Context, sensorID string, limit int) ([]*models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+readingColumns+` FROM readings
		WHERE sensor_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (r *sqliteReadingRepo) History(ctx context.Context, sensorID string, from time.Time) ([]*models.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+readingColumns+` FROM readings
		WHERE sensor_id = ? AND created_at >= ?
		ORDER BY created_at ASC, id ASC`, sensorID, from.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query reading history: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (r *sqliteReadingRepo) CountForSensor(ctx context.Context, sensorID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM readings WHERE sensor_id = ?", sensorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

func (r *sqliteReadingRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM readings WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", err)
	}
	return res.RowsAffected()
}

func (r *sqliteReadingRepo) DeleteForSensor(ctx context.Context, sensorID string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM readings WHERE sensor_id = ?", sensorID); err != nil {
		return fmt.Errorf("failed to delete sensor readings: %w", err)
	}
	return nil
}

func scanReadings(rows *sql.Rows) ([]*models.Reading, error) {
	var readings []*models.Reading
	for rows.Next() {
		var rd models.Reading
		if err := rows.Scan(&rd.ID, &rd.SensorID, &rd.DataFormat,
			&rd.Temperature, &rd.Humidity, &rd.Pressure, &rd.RSSI,
			&rd.MovementCounter, &rd.AccelX, &rd.AccelY, &rd.AccelZ,
			&rd.Voltage, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, &rd)
	}
	return readings, rows.Err()
}
