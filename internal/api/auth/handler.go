package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"

	"github.com/good-yellow-bee/tagwatch/internal/metrics"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// TokenRequest is the body of a token exchange.
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// TokenResponse is returned on successful token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // seconds
	TokenType   string `json:"token_type"`
}

// Handler exchanges the configured API key for a short-lived JWT.
type Handler struct {
	apiKey     []byte
	jwtService *JWTService
}

// NewHandler creates an auth handler.
func NewHandler(apiKey string, jwtService *JWTService) *Handler {
	return &Handler{
		apiKey:     []byte(apiKey),
		jwtService: jwtService,
	}
}

// Token handles POST /auth/token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if len(h.apiKey) == 0 ||
		subtle.ConstantTimeCompare([]byte(req.APIKey), h.apiKey) != 1 {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		log.Printf("token exchange failed for %s", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid api key")
		return
	}

	token, err := h.jwtService.GenerateToken("api-key")
	if err != nil {
		log.Printf("token generation failed: %v", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
	jsonOK(w, TokenResponse{
		AccessToken: token,
		ExpiresIn:   h.jwtService.TTLSeconds(),
		TokenType:   "Bearer",
	})
}
