package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

type sqliteRuleRepo struct {
	db *sql.DB
}

const ruleColumns = "id, sensor_id, type, low, high, enabled, description, muted_until, created_at, updated_at"

func (r *sqliteRuleRepo) Create(ctx context.Context, rule *models.AlarmRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alarm_rules (sensor_id, type, low, high, enabled, description, muted_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.SensorID, int(rule.Type), rule.Low, rule.High, rule.Enabled,
		rule.Description, rule.MutedUntil, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule id: %w", err)
	}
	rule.ID = id
	return nil
}

func (r *sqliteRuleRepo) GetByID(ctx context.Context, id int64) (*models.AlarmRule, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM alarm_rules WHERE id = ?", id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func (r *sqliteRuleRepo) Update(ctx context.Context, rule *models.AlarmRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	rule.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE alarm_rules
		SET sensor_id = ?, type = ?, low = ?, high = ?, enabled = ?, description = ?, muted_until = ?, updated_at = ?
		WHERE id = ?`,
		rule.SensorID, int(rule.Type), rule.Low, rule.High, rule.Enabled,
		rule.Description, rule.MutedUntil, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRuleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM alarm_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRuleRepo) List(ctx context.Context) ([]*models.AlarmRule, error) {
	return r.query(ctx, "SELECT "+ruleColumns+" FROM alarm_rules ORDER BY id")
}

func (r *sqliteRuleRepo) ListBySensor(ctx context.Context, sensorID string) ([]*models.AlarmRule, error) {
	return r.query(ctx,
		"SELECT "+ruleColumns+" FROM alarm_rules WHERE sensor_id = ? ORDER BY id", sensorID)
}

func (r *sqliteRuleRepo) ListEnabledBySensor(ctx context.Context, sensorID string) ([]*models.AlarmRule, error) {
	return r.query(ctx,
		"SELECT "+ruleColumns+" FROM alarm_rules WHERE sensor_id = ? AND enabled = 1 ORDER BY id", sensorID)
}

func (r *sqliteRuleRepo) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE alarm_rules SET enabled = ?, updated_at = ? WHERE id = ?",
		enabled, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set rule enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRuleRepo) SetMutedUntil(ctx context.Context, id int64, until *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE alarm_rules SET muted_until = ?, updated_at = ? WHERE id = ?",
		until, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mute rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRuleRepo) query(ctx context.Context, q string, args ...any) ([]*models.AlarmRule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlarmRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (*models.AlarmRule, error) {
	var (
		rule     models.AlarmRule
		typeCode int
	)
	if err := row.Scan(&rule.ID, &rule.SensorID, &typeCode, &rule.Low, &rule.High,
		&rule.Enabled, &rule.Description, &rule.MutedUntil,
		&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}
	rule.Type = models.AlarmType(typeCode)
	return &rule, nil
}
