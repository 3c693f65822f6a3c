package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestWebhookConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  WebhookConfig
		wantErr bool
	}{
		{"valid https", WebhookConfig{URL: "https://example.com/hook"}, false},
		{"valid http", WebhookConfig{URL: "http://localhost:9000/hook"}, false},
		{"empty url", WebhookConfig{}, true},
		{"bad scheme", WebhookConfig{URL: "ftp://example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWebhookSendAndCancel(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []webhookPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer token123" {
			t.Errorf("missing auth header, got %q", r.Header.Get("Authorization"))
		}
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier(WebhookConfig{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer token123"},
	})
	if err != nil {
		t.Fatalf("failed to create notifier: %v", err)
	}

	ctx := context.Background()
	if err := n.Send(ctx, testEvent(42)); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := n.Cancel(ctx, 42); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(payloads))
	}
	fire, cancel := payloads[0], payloads[1]
	if fire.Action != "fire" || fire.NotificationID != 42 || fire.AlarmType != "temperature" {
		t.Errorf("fire payload = %+v", fire)
	}
	if fire.Message == "" || fire.SensorName != "Greenhouse" {
		t.Errorf("fire payload missing fields: %+v", fire)
	}
	if cancel.Action != "cancel" || cancel.NotificationID != 42 {
		t.Errorf("cancel payload = %+v", cancel)
	}
}

func TestWebhookSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier(WebhookConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("failed to create notifier: %v", err)
	}

	if err := n.Send(context.Background(), testEvent(1)); err == nil {
		t.Fatal("expected error on 500 response")
	}
}
