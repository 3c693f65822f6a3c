package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

type sqliteEventRepo struct {
	db *sql.DB
}

const eventColumns = "id, rule_id, sensor_id, type, message, triggered_at, created_at"

func (r *sqliteEventRepo) Create(ctx context.Context, event *models.AlarmEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alarm_events (id, rule_id, sensor_id, type, message, triggered_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.RuleID, event.SensorID, int(event.Type),
		event.Message, event.TriggeredAt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *sqliteEventRepo) List(ctx context.Context, limit, offset int) ([]*models.AlarmEvent, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alarm_events").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM alarm_events
		ORDER BY triggered_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	return events, total, err
}

func (r *sqliteEventRepo) ListBySensor(ctx context.Context, sensorID string, limit, offset int) ([]*models.AlarmEvent, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alarm_events WHERE sensor_id = ?", sensorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sensor events: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM alarm_events
		WHERE sensor_id = ?
		ORDER BY triggered_at DESC
		LIMIT ? OFFSET ?`, sensorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sensor events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	return events, total, err
}

func (r *sqliteEventRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM alarm_events WHERE triggered_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

func scanEvents(rows *sql.Rows) ([]*models.AlarmEvent, error) {
	var events []*models.AlarmEvent
	for rows.Next() {
		var (
			ev       models.AlarmEvent
			typeCode int
		)
		if err := rows.Scan(&ev.ID, &ev.RuleID, &ev.SensorID, &typeCode,
			&ev.Message, &ev.TriggeredAt, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = models.AlarmType(typeCode)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
