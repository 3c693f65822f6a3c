// Package main provides the TagWatch server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Alerting  AlertingConfig  `yaml:"alerting"`
	Checker   CheckerConfig   `yaml:"checker"`
	Notifiers NotifiersConfig `yaml:"notifiers"`
	Verbose   bool            `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Address            string `yaml:"address"`               // HTTP listen address (default: :8080)
	RateLimitPerIP     int    `yaml:"rate_limit_per_ip"`     // token endpoint, per minute
	RateLimitPerClient int    `yaml:"rate_limit_per_client"` // authenticated routes, per minute
}

// MetricsConfig contains the Prometheus metrics server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // database file path (default: data/tagwatch.db)
}

// MQTTConfig contains gateway ingest settings. Ingest is optional: a
// deployment can run API-only with readings arriving some other way.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`    // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id"` // default: tagwatch-ingest
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"` // subscription filter, last segment is the sensor id
	QoS      byte   `yaml:"qos"`
}

// AlertingConfig contains evaluation settings.
type AlertingConfig struct {
	Cooldown        time.Duration `yaml:"cooldown"`         // per-rule notification cooldown (default: 10s)
	TemperatureUnit string        `yaml:"temperature_unit"` // C, F or K (default: C)
	PressureUnit    string        `yaml:"pressure_unit"`    // Pa, hPa or mmHg (default: hPa)
	RulesFile       string        `yaml:"rules_file"`       // optional rule seed file, hot reloaded
}

// CheckerConfig contains sweep and retention settings.
type CheckerConfig struct {
	Interval      time.Duration `yaml:"interval"`       // periodic sweep period (default: 1m)
	Retention     time.Duration `yaml:"retention"`      // reading history retention (default: 240h)
	PruneInterval time.Duration `yaml:"prune_interval"` // retention prune period (default: 1h)
	Concurrency   int           `yaml:"concurrency"`    // parallel sensor checks (default: 8)
}

// NotifiersConfig selects the enabled notification channels.
type NotifiersConfig struct {
	Console         bool              `yaml:"console"`
	WebhookURL      string            `yaml:"webhook_url"`
	WebhookHeaders  map[string]string `yaml:"webhook_headers"`
	MQTTTopicPrefix string            `yaml:"mqtt_topic_prefix"` // publishes alerts over the ingest connection
	MaxPerMinute    int               `yaml:"max_per_minute"`    // dispatcher rate limit (default: 30)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/tagwatch.db"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "tagwatch-ingest"
	}
	if c.Alerting.Cooldown <= 0 {
		c.Alerting.Cooldown = 10 * time.Second
	}
	if c.Alerting.TemperatureUnit == "" {
		c.Alerting.TemperatureUnit = "C"
	}
	if c.Alerting.PressureUnit == "" {
		c.Alerting.PressureUnit = "hPa"
	}
	if c.Checker.Interval <= 0 {
		c.Checker.Interval = time.Minute
	}
	if c.Checker.Retention <= 0 {
		c.Checker.Retention = 10 * 24 * time.Hour
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
		}
		if c.MQTT.Topic == "" {
			return fmt.Errorf("mqtt.topic is required when MQTT is enabled")
		}
	}
	if c.Notifiers.MQTTTopicPrefix != "" && !c.MQTT.Enabled {
		return fmt.Errorf("notifiers.mqtt_topic_prefix requires mqtt.enabled")
	}
	switch c.Alerting.TemperatureUnit {
	case "C", "F", "K":
	default:
		return fmt.Errorf("alerting.temperature_unit must be C, F or K")
	}
	switch c.Alerting.PressureUnit {
	case "Pa", "hPa", "mmHg":
	default:
		return fmt.Errorf("alerting.pressure_unit must be Pa, hPa or mmHg")
	}
	return nil
}
