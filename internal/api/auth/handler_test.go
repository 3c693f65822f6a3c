package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestHandler() *Handler {
	svc := NewJWTService([]byte("test-secret-key"), 15*time.Minute)
	return NewHandler("valid-api-key", svc)
}

func TestTokenExchange(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(`{"api_key":"valid-api-key"}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data TokenResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.AccessToken == "" || resp.Data.TokenType != "Bearer" {
		t.Errorf("response = %+v", resp.Data)
	}
	if resp.Data.ExpiresIn != 900 {
		t.Errorf("expires_in = %d, want 900", resp.Data.ExpiresIn)
	}
}

func TestTokenExchangeWrongKey(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(`{"api_key":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTokenExchangeBadBody(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTokenExchangeEmptyConfiguredKey(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key"), 15*time.Minute)
	h := NewHandler("", svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(`{"api_key":""}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	// An unset API key must never authenticate anyone.
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
