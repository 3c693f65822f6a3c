package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/good-yellow-bee/tagwatch/internal/metrics"
	"github.com/good-yellow-bee/tagwatch/internal/models"
	"github.com/good-yellow-bee/tagwatch/internal/storage"
)

// Config holds MQTT subscriber configuration.
type Config struct {
	Broker   string // broker URL, e.g. "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	// Topic is the subscription filter. The last topic segment must be the
	// sensor id, e.g. "ruuvi/+" or "gateways/+/readings/+".
	Topic string
	QoS   byte
}

// Validate validates the subscriber configuration.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker URL is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("mqtt topic is required")
	}
	return nil
}

// CheckFunc is invoked after a reading is stored so alarm evaluation can
// run without waiting for the next sweep.
type CheckFunc func(ctx context.Context, sensorID string)

// Subscriber consumes gateway broadcasts from an MQTT broker.
type Subscriber struct {
	cfg     Config
	client  mqtt.Client
	store   storage.Storage
	onStore CheckFunc
}

// NewSubscriber creates a subscriber. onStore may be nil if no immediate
// checking is wanted.
func NewSubscriber(cfg Config, store storage.Storage, onStore CheckFunc) (*Subscriber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "tagwatch-ingest"
	}

	s := &Subscriber{cfg: cfg, store: store, onStore: onStore}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		metrics.MQTTConnected.Set(1)
		log.Printf("mqtt connected to %s", cfg.Broker)
		// Re-subscribe after every (re)connect.
		if token := c.Subscribe(cfg.Topic, cfg.QoS, s.handleMessage); token.Wait() && token.Error() != nil {
			log.Printf("mqtt subscribe to %s failed: %v", cfg.Topic, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		metrics.MQTTConnected.Set(0)
		log.Printf("mqtt connection lost: %v", err)
	})

	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Client exposes the underlying MQTT client so notifiers can share the
// connection.
func (s *Subscriber) Client() mqtt.Client {
	return s.client
}

// Start connects to the broker. Subscription happens in the connect handler.
func (s *Subscriber) Start() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}
	return nil
}

// Stop unsubscribes and disconnects.
func (s *Subscriber) Stop() {
	if s.client.IsConnected() {
		if token := s.client.Unsubscribe(s.cfg.Topic); token.Wait() && token.Error() != nil {
			log.Printf("mqtt unsubscribe failed: %v", token.Error())
		}
		s.client.Disconnect(250)
	}
	metrics.MQTTConnected.Set(0)
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sensorID := sensorIDFromTopic(msg.Topic())
	if sensorID == "" {
		metrics.IngestDecodeErrors.Inc()
		log.Printf("mqtt message on topic %q has no sensor id segment", msg.Topic())
		return
	}

	if err := s.Ingest(ctx, sensorID, msg.Payload()); err != nil {
		log.Printf("failed to ingest reading for sensor %s: %v", sensorID, err)
	}
}

// Ingest decodes and stores one gateway payload, auto-registering unknown
// sensors, and triggers an immediate alarm check.
func (s *Subscriber) Ingest(ctx context.Context, sensorID string, payload []byte) error {
	reading, err := DecodeReading(sensorID, payload)
	if err != nil {
		metrics.IngestDecodeErrors.Inc()
		return err
	}

	if err := s.ensureSensor(ctx, reading); err != nil {
		metrics.StorageErrors.WithLabelValues("ensure_sensor").Inc()
		return err
	}

	if err := s.store.Readings().Insert(ctx, reading); err != nil {
		metrics.StorageErrors.WithLabelValues("insert_reading").Inc()
		return fmt.Errorf("failed to store reading: %w", err)
	}
	metrics.ReadingsIngestedTotal.Inc()

	if err := s.store.Sensors().Touch(ctx, sensorID, reading.CreatedAt); err != nil {
		log.Printf("failed to update last_seen for sensor %s: %v", sensorID, err)
	}

	if s.onStore != nil {
		s.onStore(ctx, sensorID)
	}
	return nil
}

// ensureSensor registers the sensor on first sight.
func (s *Subscriber) ensureSensor(ctx context.Context, reading *models.Reading) error {
	_, err := s.store.Sensors().GetByID(ctx, reading.SensorID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to look up sensor: %w", err)
	}

	sensor := &models.Sensor{
		ID:         reading.SensorID,
		DataFormat: reading.DataFormat,
	}
	if err := s.store.Sensors().Create(ctx, sensor); err != nil {
		return fmt.Errorf("failed to register sensor: %w", err)
	}
	log.Printf("registered new sensor %s (format %d)", sensor.ID, sensor.DataFormat)
	return nil
}

// sensorIDFromTopic returns the last topic segment.
func sensorIDFromTopic(topic string) string {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}
