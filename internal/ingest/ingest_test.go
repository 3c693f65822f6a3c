package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/storage"
)

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "full format 5 broadcast",
			payload: `{"data_format":5,"temperature":21.5,"humidity":44.2,"pressure":101325,"rssi":-71,"accel_x":0.012,"accel_y":-0.004,"accel_z":1.036,"movement_counter":66,"battery_voltage":2.977}`,
		},
		{
			name:    "temperature only",
			payload: `{"data_format":3,"temperature":-5.2}`,
		},
		{
			name:    "no measurements",
			payload: `{"data_format":5}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			payload: `{"temperature":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := DecodeReading("AA:BB:CC:DD:EE:FF", []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeReading() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && reading.SensorID != "AA:BB:CC:DD:EE:FF" {
				t.Errorf("sensor id = %q", reading.SensorID)
			}
		})
	}
}

func TestDecodeReadingFields(t *testing.T) {
	payload := `{"data_format":5,"temperature":21.5,"movement_counter":66,"timestamp":1718000000}`
	reading, err := DecodeReading("AA:BB:CC:DD:EE:FF", []byte(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if reading.DataFormat != 5 {
		t.Errorf("data format = %d, want 5", reading.DataFormat)
	}
	if reading.Temperature == nil || *reading.Temperature != 21.5 {
		t.Errorf("temperature = %v, want 21.5", reading.Temperature)
	}
	if reading.MovementCounter == nil || *reading.MovementCounter != 66 {
		t.Errorf("movement counter = %v, want 66", reading.MovementCounter)
	}
	if reading.Humidity != nil {
		t.Errorf("humidity should be nil, got %v", *reading.Humidity)
	}
	want := time.Unix(1718000000, 0).UTC()
	if !reading.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", reading.CreatedAt, want)
	}
}

func TestDecodeReadingDefaultsTimestamp(t *testing.T) {
	before := time.Now().UTC()
	reading, err := DecodeReading("AA:BB:CC:DD:EE:FF", []byte(`{"temperature":20}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if reading.CreatedAt.Before(before.Add(-time.Second)) {
		t.Errorf("created_at = %v, expected receive time", reading.CreatedAt)
	}
}

func TestSensorIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"ruuvi/AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF"},
		{"gateways/gw1/readings/AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:01"},
		{"ruuvi/", ""},
		{"bare", ""},
	}
	for _, tt := range tests {
		if got := sensorIDFromTopic(tt.topic); got != tt.want {
			t.Errorf("sensorIDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func setupStore(t *testing.T) (storage.Storage, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "tagwatch-ingest-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	store := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
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

func TestIngestAutoRegistersAndStores(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	var checked []string
	sub := &Subscriber{
		store: store,
		onStore: func(_ context.Context, sensorID string) {
			checked = append(checked, sensorID)
		},
	}

	const id = "AA:BB:CC:DD:EE:10"
	payload := []byte(`{"data_format":5,"temperature":24.1,"humidity":38.0}`)
	if err := sub.Ingest(ctx, id, payload); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	sensor, err := store.Sensors().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("sensor not registered: %v", err)
	}
	if sensor.DataFormat != 5 {
		t.Errorf("data format = %d, want 5", sensor.DataFormat)
	}
	if sensor.LastSeen == nil {
		t.Error("expected last_seen to be set")
	}

	readings, err := store.Readings().LatestForSensor(ctx, id, 10)
	if err != nil {
		t.Fatalf("failed to load readings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}
	if readings[0].Temperature == nil || *readings[0].Temperature != 24.1 {
		t.Errorf("temperature = %v, want 24.1", readings[0].Temperature)
	}

	if len(checked) != 1 || checked[0] != id {
		t.Errorf("check trigger = %v, want [%s]", checked, id)
	}

	// A second broadcast reuses the existing registration.
	if err := sub.Ingest(ctx, id, payload); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	sensors, _ := store.Sensors().List(ctx)
	if len(sensors) != 1 {
		t.Errorf("expected 1 sensor, got %d", len(sensors))
	}
}

func TestIngestRejectsBadPayload(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	sub := &Subscriber{store: store}
	if err := sub.Ingest(context.Background(), "AA:BB:CC:DD:EE:11", []byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}

	sensors, _ := store.Sensors().List(context.Background())
	if len(sensors) != 0 {
		t.Errorf("bad payload must not register a sensor, got %d", len(sensors))
	}
}
