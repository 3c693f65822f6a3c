// Package alarms implements alarm rule management endpoints.
package alarms

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/tagwatch/internal/models"
	"github.com/good-yellow-bee/tagwatch/internal/storage"
)

// Response helpers
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

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
)

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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Canceller retracts delivered notifications and clears cooldown state for
// a rule.
type Canceller interface {
	CancelNotification(ctx context.Context, ruleID int64) error
}

// RuleResponse is the API shape of an alarm rule.
type RuleResponse struct {
	ID          int64   `json:"id"`
	SensorID    string  `json:"sensor_id"`
	Type        string  `json:"type"`
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	Enabled     bool    `json:"enabled"`
	Description string  `json:"description,omitempty"`
	MutedUntil  string  `json:"muted_until,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func ruleToResponse(rule *models.AlarmRule) *RuleResponse {
	resp := &RuleResponse{
		ID:          rule.ID,
		SensorID:    rule.SensorID,
		Type:        rule.Type.String(),
		Low:         rule.Low,
		High:        rule.High,
		Enabled:     rule.Enabled,
		Description: rule.Description,
		CreatedAt:   rule.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   rule.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rule.MutedUntil != nil {
		resp.MutedUntil = rule.MutedUntil.UTC().Format(time.RFC3339)
	}
	return resp
}

// Handler handles alarm rule endpoints.
type Handler struct {
	storage   storage.Storage
	canceller Canceller
}

// NewHandler creates an alarm handler.
func NewHandler(store storage.Storage, canceller Canceller) *Handler {
	return &Handler{storage: store, canceller: canceller}
}

// Request types
type CreateRequest struct {
	Type        string  `json:"type"` // network code, e.g. "temperature"
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	Enabled     *bool   `json:"enabled,omitempty"` // default true
	Description string  `json:"description"`
}

type UpdateRequest struct {
	Low         *float64 `json:"low,omitempty"`
	High        *float64 `json:"high,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty"`
	Description *string  `json:"description,omitempty"`
}

type MuteRequest struct {
	// Until is an RFC3339 instant. Duration is an alternative relative
	// form ("1h30m"); exactly one must be set.
	Until    string `json:"until,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// ListBySensor returns all rules for a sensor.
func (h *Handler) ListBySensor(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := h.storage.Sensors().GetByID(ctx, sensorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "sensor not found")
			return
		}
		log.Printf("list rules error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	rules, err := h.storage.Rules().ListBySensor(ctx, sensorID)
	if err != nil {
		log.Printf("list rules error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*RuleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = ruleToResponse(rule)
	}
	jsonOK(w, resp)
}

// Create adds a rule to a sensor.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := h.storage.Sensors().GetByID(ctx, sensorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "sensor not found")
			return
		}
		log.Printf("create rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	alarmType, ok := models.AlarmTypeByNetworkCode(strings.TrimSpace(req.Type))
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "unknown alarm type")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &models.AlarmRule{
		SensorID:    sensorID,
		Type:        alarmType,
		Low:         req.Low,
		High:        req.High,
		Enabled:     enabled,
		Description: strings.TrimSpace(req.Description),
	}
	if err := rule.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	if err := h.storage.Rules().Create(ctx, rule); err != nil {
		log.Printf("create rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("alarm rule created: %d (%s on %s)", rule.ID, rule.Type, sensorID)
	jsonCreated(w, ruleToResponse(rule))
}

// GetByID returns a rule by id.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}
	jsonOK(w, ruleToResponse(rule))
}

// Update updates a rule's thresholds, enabled flag, or description.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Low != nil {
		rule.Low = *req.Low
	}
	if req.High != nil {
		rule.High = *req.High
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Description != nil {
		rule.Description = strings.TrimSpace(*req.Description)
	}

	if err := rule.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	if err := h.storage.Rules().Update(r.Context(), rule); err != nil {
		log.Printf("update rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	// Disabling a rule retracts its standing notification.
	if req.Enabled != nil && !*req.Enabled {
		h.cancel(r.Context(), rule.ID)
	}

	jsonOK(w, ruleToResponse(rule))
}

// Delete removes a rule and retracts its notification.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	if err := h.storage.Rules().Delete(r.Context(), rule.ID); err != nil {
		log.Printf("delete rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.cancel(r.Context(), rule.ID)
	log.Printf("alarm rule deleted: %d", rule.ID)
	jsonNoContent(w)
}

// SetEnabled handles the enable/disable sub-resources.
func (h *Handler) SetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule, ok := h.loadRule(w, r)
		if !ok {
			return
		}

		if err := h.storage.Rules().SetEnabled(r.Context(), rule.ID, enabled); err != nil {
			log.Printf("set rule enabled error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if !enabled {
			h.cancel(r.Context(), rule.ID)
		}

		rule.Enabled = enabled
		jsonOK(w, ruleToResponse(rule))
	}
}

// Mute silences a rule until the given instant. Muting does not retract
// the standing notification; it only stops new ones.
func (h *Handler) Mute(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	var until time.Time
	switch {
	case req.Until != "" && req.Duration != "":
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "specify either until or duration, not both")
		return
	case req.Until != "":
		t, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "until must be RFC3339")
			return
		}
		until = t
	case req.Duration != "":
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "invalid mute duration")
			return
		}
		until = time.Now().Add(d)
	default:
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "until or duration required")
		return
	}

	if !until.After(time.Now()) {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "mute must end in the future")
		return
	}

	if err := h.storage.Rules().SetMutedUntil(r.Context(), rule.ID, &until); err != nil {
		log.Printf("mute rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	rule.MutedUntil = &until
	log.Printf("alarm rule %d muted until %s", rule.ID, until.UTC().Format(time.RFC3339))
	jsonOK(w, ruleToResponse(rule))
}

// Unmute clears a rule's mute window.
func (h *Handler) Unmute(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	if err := h.storage.Rules().SetMutedUntil(r.Context(), rule.ID, nil); err != nil {
		log.Printf("unmute rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	rule.MutedUntil = nil
	jsonOK(w, ruleToResponse(rule))
}

// CloudPayload returns the rule serialized as a cloud sync request body.
func (h *Handler) CloudPayload(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}

	payload, err := rule.ToCloudRequest(time.Now())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, err.Error())
		return
	}
	jsonOK(w, payload)
}

// CancelNotification handles DELETE /notifications/{id}: the notification id
// is the rule id, and cancelling retracts it from every channel and resets
// the rule's cooldown.
func (h *Handler) CancelNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid notification id")
		return
	}

	if err := h.canceller.CancelNotification(r.Context(), id); err != nil {
		log.Printf("cancel notification error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonNoContent(w)
}

func (h *Handler) cancel(ctx context.Context, ruleID int64) {
	if h.canceller == nil {
		return
	}
	if err := h.canceller.CancelNotification(ctx, ruleID); err != nil {
		log.Printf("failed to retract notification for rule %d: %v", ruleID, err)
	}
}

func (h *Handler) loadRule(w http.ResponseWriter, r *http.Request) (*models.AlarmRule, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid alarm id")
		return nil, false
	}

	rule, err := h.storage.Rules().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "alarm not found")
			return nil, false
		}
		log.Printf("get rule error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	return rule, true
}
