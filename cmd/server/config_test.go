package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("server address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Metrics.Address != ":9090" {
		t.Errorf("metrics address = %q, want :9090", cfg.Metrics.Address)
	}
	if cfg.Database.Path != "data/tagwatch.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Alerting.Cooldown != 10*time.Second {
		t.Errorf("cooldown = %v, want 10s", cfg.Alerting.Cooldown)
	}
	if cfg.Alerting.TemperatureUnit != "C" || cfg.Alerting.PressureUnit != "hPa" {
		t.Errorf("units = %q/%q", cfg.Alerting.TemperatureUnit, cfg.Alerting.PressureUnit)
	}
	if cfg.Checker.Interval != time.Minute {
		t.Errorf("checker interval = %v, want 1m", cfg.Checker.Interval)
	}
	if cfg.Checker.Retention != 10*24*time.Hour {
		t.Errorf("retention = %v, want 240h", cfg.Checker.Retention)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9000"
  rate_limit_per_client: 100
database:
  path: /var/lib/tagwatch/tagwatch.db
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  topic: ruuvi/gateway/+
alerting:
  temperature_unit: F
notifiers:
  console: true
  webhook_url: https://example.com/hook
  webhook_headers:
    Authorization: Bearer abc
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Server.RateLimitPerClient != 100 {
		t.Errorf("rate limit = %d", cfg.Server.RateLimitPerClient)
	}
	if cfg.Database.Path != "/var/lib/tagwatch/tagwatch.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.MQTT.ClientID != "tagwatch-ingest" {
		t.Errorf("client id default = %q", cfg.MQTT.ClientID)
	}
	if cfg.Alerting.TemperatureUnit != "F" {
		t.Errorf("temperature unit = %q", cfg.Alerting.TemperatureUnit)
	}
	if cfg.Notifiers.WebhookHeaders["Authorization"] != "Bearer abc" {
		t.Errorf("webhook headers = %v", cfg.Notifiers.WebhookHeaders)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "mqtt enabled without broker",
			content: `
mqtt:
  enabled: true
  topic: ruuvi/+
`,
		},
		{
			name: "mqtt enabled without topic",
			content: `
mqtt:
  enabled: true
  broker: tcp://localhost:1883
`,
		},
		{
			name: "mqtt notifier without mqtt ingest",
			content: `
notifiers:
  mqtt_topic_prefix: tagwatch/alerts
`,
		},
		{
			name: "bad temperature unit",
			content: `
alerting:
  temperature_unit: X
`,
		},
		{
			name: "bad pressure unit",
			content: `
alerting:
  pressure_unit: bar
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
