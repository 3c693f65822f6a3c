package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/good-yellow-bee/tagwatch/internal/alerting"
)

// MQTTConfig holds MQTT notifier configuration.
type MQTTConfig struct {
	TopicPrefix string        // Topic prefix, e.g. "tagwatch/alarms"
	QoS         byte          // Delivery QoS (default 1)
	Timeout     time.Duration // Publish wait timeout (default 10s)
}

// MQTTNotifier publishes alarm notifications to an MQTT broker so other
// home-automation consumers can react to them.
type MQTTNotifier struct {
	client mqtt.Client
	config MQTTConfig
}

// NewMQTTNotifier creates an MQTT notifier on an already connected client.
func NewMQTTNotifier(client mqtt.Client, config MQTTConfig) (*MQTTNotifier, error) {
	if config.TopicPrefix == "" {
		return nil, fmt.Errorf("topic prefix is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &MQTTNotifier{client: client, config: config}, nil
}

// Name returns "mqtt".
func (m *MQTTNotifier) Name() string {
	return "mqtt"
}

// Send publishes the alarm event to <prefix>/<sensor-id>/fire.
func (m *MQTTNotifier) Send(ctx context.Context, event *alerting.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := m.config.TopicPrefix + "/" + event.SensorID + "/fire"
	return m.publish(ctx, topic, payload)
}

// Cancel publishes a retraction to <prefix>/cancel.
func (m *MQTTNotifier) Cancel(ctx context.Context, notificationID int64) error {
	payload := []byte(strconv.FormatInt(notificationID, 10))
	return m.publish(ctx, m.config.TopicPrefix+"/cancel", payload)
}

func (m *MQTTNotifier) publish(ctx context.Context, topic string, payload []byte) error {
	token := m.client.Publish(topic, m.config.QoS, false, payload)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(m.config.Timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

// Close is a no-op; the shared MQTT client is owned by the caller.
func (m *MQTTNotifier) Close() error {
	return nil
}
