package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "tagwatch-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	store := NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err := store.Open(); err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(dir)
		t.Fatalf("failed to migrate: %v", err)
	}

	return store, func() {
		store.Close()
		os.RemoveAll(dir)
	}
}

func createTestSensor(t *testing.T, store *SQLiteStorage, id string) *models.Sensor {
	t.Helper()
	sensor := &models.Sensor{ID: id, Name: "RuuviTag " + id, DataFormat: 5}
	if err := store.Sensors().Create(context.Background(), sensor); err != nil {
		t.Fatalf("failed to create sensor: %v", err)
	}
	return sensor
}

func TestMigrateIdempotent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestSensorCRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:01")

	got, err := store.Sensors().GetByID(ctx, sensor.ID)
	if err != nil {
		t.Fatalf("failed to get sensor: %v", err)
	}
	if got.Name != sensor.Name || got.DataFormat != 5 {
		t.Errorf("got sensor %+v, want name %q format 5", got, sensor.Name)
	}

	got.DisplayName = "Greenhouse"
	if err := store.Sensors().Update(ctx, got); err != nil {
		t.Fatalf("failed to update sensor: %v", err)
	}
	got, _ = store.Sensors().GetByID(ctx, sensor.ID)
	if got.Title() != "Greenhouse" {
		t.Errorf("Title() = %q, want Greenhouse", got.Title())
	}

	seen := time.Now().UTC().Truncate(time.Second)
	if err := store.Sensors().Touch(ctx, sensor.ID, seen); err != nil {
		t.Fatalf("failed to touch sensor: %v", err)
	}
	got, _ = store.Sensors().GetByID(ctx, sensor.ID)
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("last_seen = %v, want %v", got.LastSeen, seen)
	}

	list, err := store.Sensors().List(ctx)
	if err != nil {
		t.Fatalf("failed to list sensors: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 sensor, got %d", len(list))
	}

	if err := store.Sensors().Delete(ctx, sensor.ID); err != nil {
		t.Fatalf("failed to delete sensor: %v", err)
	}
	if _, err := store.Sensors().GetByID(ctx, sensor.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRuleCRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:02")

	rule := &models.AlarmRule{
		SensorID:    sensor.ID,
		Type:        models.AlarmTemperature,
		Low:         -10,
		High:        30,
		Enabled:     true,
		Description: "cold storage",
	}
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}
	if rule.ID == 0 {
		t.Fatal("expected rule id to be assigned")
	}

	got, err := store.Rules().GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("failed to get rule: %v", err)
	}
	if got.Type != models.AlarmTemperature || got.Low != -10 || got.High != 30 {
		t.Errorf("got rule %+v", got)
	}

	got.High = 25
	if err := store.Rules().Update(ctx, got); err != nil {
		t.Fatalf("failed to update rule: %v", err)
	}
	got, _ = store.Rules().GetByID(ctx, rule.ID)
	if got.High != 25 {
		t.Errorf("high = %v, want 25", got.High)
	}

	if err := store.Rules().Delete(ctx, rule.ID); err != nil {
		t.Fatalf("failed to delete rule: %v", err)
	}
	if _, err := store.Rules().GetByID(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRuleCreateRejectsInvalid(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:03")

	rule := &models.AlarmRule{
		SensorID: sensor.ID,
		Type:     models.AlarmHumidity,
		Low:      80,
		High:     20, // inverted
		Enabled:  true,
	}
	if err := store.Rules().Create(context.Background(), rule); err == nil {
		t.Fatal("expected validation error for inverted bounds")
	}
}

func TestListEnabledBySensor(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:04")

	enabled := &models.AlarmRule{SensorID: sensor.ID, Type: models.AlarmTemperature, Low: 0, High: 30, Enabled: true}
	disabled := &models.AlarmRule{SensorID: sensor.ID, Type: models.AlarmHumidity, Low: 20, High: 80, Enabled: false}
	for _, rule := range []*models.AlarmRule{enabled, disabled} {
		if err := store.Rules().Create(ctx, rule); err != nil {
			t.Fatalf("failed to create rule: %v", err)
		}
	}

	rules, err := store.Rules().ListEnabledBySensor(ctx, sensor.ID)
	if err != nil {
		t.Fatalf("failed to list enabled rules: %v", err)
	}
	if len(rules) != 1 || rules[0].Type != models.AlarmTemperature {
		t.Fatalf("expected only the enabled temperature rule, got %d rules", len(rules))
	}

	if err := store.Rules().SetEnabled(ctx, disabled.ID, true); err != nil {
		t.Fatalf("failed to enable rule: %v", err)
	}
	rules, _ = store.Rules().ListEnabledBySensor(ctx, sensor.ID)
	if len(rules) != 2 {
		t.Errorf("expected 2 enabled rules, got %d", len(rules))
	}
}

func TestSetMutedUntil(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:05")
	rule := &models.AlarmRule{SensorID: sensor.ID, Type: models.AlarmPressure, Low: 90000, High: 110000, Enabled: true}
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	until := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	if err := store.Rules().SetMutedUntil(ctx, rule.ID, &until); err != nil {
		t.Fatalf("failed to mute rule: %v", err)
	}
	got, _ := store.Rules().GetByID(ctx, rule.ID)
	if got.MutedUntil == nil || !got.MutedUntil.Equal(until) {
		t.Errorf("muted_until = %v, want %v", got.MutedUntil, until)
	}

	if err := store.Rules().SetMutedUntil(ctx, rule.ID, nil); err != nil {
		t.Fatalf("failed to unmute rule: %v", err)
	}
	got, _ = store.Rules().GetByID(ctx, rule.ID)
	if got.MutedUntil != nil {
		t.Errorf("expected mute cleared, got %v", got.MutedUntil)
	}
}

func TestReadingsLatestAndHistory(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:06")

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		temp := 20.0 + float64(i)
		reading := &models.Reading{
			SensorID:    sensor.ID,
			DataFormat:  5,
			Temperature: &temp,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Readings().Insert(ctx, reading); err != nil {
			t.Fatalf("failed to insert reading: %v", err)
		}
	}

	latest, err := store.Readings().LatestForSensor(ctx, sensor.ID, 2)
	if err != nil {
		t.Fatalf("failed to query latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(latest))
	}
	// Newest first.
	if *latest[0].Temperature != 24 || *latest[1].Temperature != 23 {
		t.Errorf("latest order wrong: %v, %v", *latest[0].Temperature, *latest[1].Temperature)
	}

	history, err := store.Readings().History(ctx, sensor.ID, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("failed to query history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 readings from cutoff, got %d", len(history))
	}
	// Oldest first.
	if *history[0].Temperature != 22 || *history[2].Temperature != 24 {
		t.Errorf("history order wrong: %v ... %v", *history[0].Temperature, *history[2].Temperature)
	}
}

func TestReadingsPruning(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:07")

	now := time.Now().UTC()
	for _, age := range []time.Duration{48 * time.Hour, 12 * time.Hour, time.Hour} {
		temp := 21.0
		reading := &models.Reading{
			SensorID:    sensor.ID,
			DataFormat:  5,
			Temperature: &temp,
			CreatedAt:   now.Add(-age),
		}
		if err := store.Readings().Insert(ctx, reading); err != nil {
			t.Fatalf("failed to insert reading: %v", err)
		}
	}

	removed, err := store.Readings().DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned reading, got %d", removed)
	}

	count, err := store.Readings().CountForSensor(ctx, sensor.ID)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 remaining readings, got %d", count)
	}
}

func TestCascadeDelete(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:08")

	rule := &models.AlarmRule{SensorID: sensor.ID, Type: models.AlarmTemperature, Low: 0, High: 30, Enabled: true}
	if err := store.Rules().Create(ctx, rule); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}
	temp := 25.0
	if err := store.Readings().Insert(ctx, &models.Reading{SensorID: sensor.ID, DataFormat: 5, Temperature: &temp}); err != nil {
		t.Fatalf("failed to insert reading: %v", err)
	}

	if err := store.Sensors().Delete(ctx, sensor.ID); err != nil {
		t.Fatalf("failed to delete sensor: %v", err)
	}

	rules, err := store.Rules().ListBySensor(ctx, sensor.ID)
	if err != nil {
		t.Fatalf("failed to list rules: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("expected rules to cascade, got %d", len(rules))
	}
	count, _ := store.Readings().CountForSensor(ctx, sensor.ID)
	if count != 0 {
		t.Errorf("expected readings to cascade, got %d", count)
	}
}

func TestEventAuditTrail(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	sensor := createTestSensor(t, store, "AA:BB:CC:DD:EE:09")

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		ev := &models.AlarmEvent{
			ID:          uuid.NewString(),
			RuleID:      int64(i + 1),
			SensorID:    sensor.ID,
			Type:        models.AlarmTemperature,
			Message:     "Temperature is above 30.0°C",
			TriggeredAt: now.Add(-time.Duration(i) * time.Hour),
		}
		if err := store.Events().Create(ctx, ev); err != nil {
			t.Fatalf("failed to create event: %v", err)
		}
	}

	events, total, err := store.Events().List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("failed to list events: %v", err)
	}
	if total != 3 || len(events) != 2 {
		t.Fatalf("total = %d, page = %d; want 3, 2", total, len(events))
	}
	// Newest first.
	if events[0].TriggeredAt.Before(events[1].TriggeredAt) {
		t.Error("events not ordered newest first")
	}

	bySensor, total, err := store.Events().ListBySensor(ctx, sensor.ID, 10, 0)
	if err != nil {
		t.Fatalf("failed to list sensor events: %v", err)
	}
	if total != 3 || len(bySensor) != 3 {
		t.Errorf("sensor events total = %d, page = %d; want 3, 3", total, len(bySensor))
	}

	removed, err := store.Events().DeleteBefore(ctx, now.Add(-90*time.Minute))
	if err != nil {
		t.Fatalf("failed to prune events: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned event, got %d", removed)
	}
}
