package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/tagwatch/internal/alerting"
)

// WebhookConfig holds webhook notifier configuration.
type WebhookConfig struct {
	URL     string            // Endpoint receiving POSTed alarm payloads
	Headers map[string]string // Extra headers, e.g. Authorization
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "https://") && !strings.HasPrefix(c.URL, "http://") {
		return fmt.Errorf("webhook URL must be http or https")
	}
	return nil
}

// WebhookNotifier POSTs alarm notifications to an HTTP endpoint as JSON.
type WebhookNotifier struct {
	config     WebhookConfig
	httpClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(config WebhookConfig) (*WebhookNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}

	return &WebhookNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "webhook".
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// webhookPayload is the JSON body POSTed for each alarm event.
type webhookPayload struct {
	Action         string  `json:"action"` // "fire" or "cancel"
	NotificationID int64   `json:"notification_id"`
	Sensor         string  `json:"sensor,omitempty"`
	SensorName     string  `json:"sensor_name,omitempty"`
	AlarmType      string  `json:"alarm_type,omitempty"`
	Message        string  `json:"message,omitempty"`
	Boundary       string  `json:"boundary,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
	Description    string  `json:"description,omitempty"`
	Timestamp      string  `json:"timestamp,omitempty"`
}

// Send POSTs the alarm event to the configured endpoint.
func (w *WebhookNotifier) Send(ctx context.Context, event *alerting.NotificationEvent) error {
	payload := webhookPayload{
		Action:         "fire",
		NotificationID: event.NotificationID(),
		Sensor:         event.SensorID,
		SensorName:     event.SensorName,
		AlarmType:      event.Type.String(),
		Message:        event.Message,
		Boundary:       string(event.Boundary),
		Threshold:      event.Threshold,
		Description:    event.Description,
		Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
	}
	return w.post(ctx, payload)
}

// Cancel POSTs a retraction for a previously fired notification.
func (w *WebhookNotifier) Cancel(ctx context.Context, notificationID int64) error {
	return w.post(ctx, webhookPayload{
		Action:         "cancel",
		NotificationID: notificationID,
	})
}

func (w *WebhookNotifier) post(ctx context.Context, payload webhookPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for the webhook notifier.
func (w *WebhookNotifier) Close() error {
	return nil
}
