// Package sensors implements the sensor registry and telemetry endpoints.
package sensors

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

	"github.com/good-yellow-bee/tagwatch/internal/alerting"
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
	errCodeConflict         = "CONFLICT"
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

// StatusProvider answers alarm status queries for a sensor.
type StatusProvider interface {
	Status(ctx context.Context, sensorID string) (alerting.AlarmSensorStatus, error)
}

// SensorResponse is the API shape of a sensor.
type SensorResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	DataFormat  int    `json:"data_format"`
	LastSeen    string `json:"last_seen,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func sensorToResponse(s *models.Sensor) *SensorResponse {
	resp := &SensorResponse{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		DataFormat:  s.DataFormat,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.LastSeen != nil {
		resp.LastSeen = s.LastSeen.UTC().Format(time.RFC3339)
	}
	return resp
}

// EventResponse is the API shape of an alarm event.
type EventResponse struct {
	ID          string `json:"id"`
	RuleID      int64  `json:"rule_id"`
	SensorID    string `json:"sensor_id"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

func eventToResponse(e *models.AlarmEvent) *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		RuleID:      e.RuleID,
		SensorID:    e.SensorID,
		Type:        e.Type.String(),
		Message:     e.Message,
		TriggeredAt: e.TriggeredAt.UTC().Format(time.RFC3339),
	}
}

// Handler handles sensor endpoints.
type Handler struct {
	storage storage.Storage
	status  StatusProvider
}

// NewHandler creates a sensor handler.
func NewHandler(store storage.Storage, status StatusProvider) *Handler {
	return &Handler{storage: store, status: status}
}

// Request types
type CreateRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	DataFormat  int    `json:"data_format"`
}

type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	DataFormat  *int    `json:"data_format,omitempty"`
}

// List returns all sensors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.storage.Sensors().List(r.Context())
	if err != nil {
		log.Printf("list sensors error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*SensorResponse, len(sensors))
	for i, s := range sensors {
		resp[i] = sensorToResponse(s)
	}
	jsonOK(w, resp)
}

// Create registers a sensor.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "sensor id required")
		return
	}

	ctx := r.Context()
	if _, err := h.storage.Sensors().GetByID(ctx, req.ID); err == nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "sensor already exists")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("create sensor error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	sensor := &models.Sensor{
		ID:          req.ID,
		Name:        strings.TrimSpace(req.Name),
		DisplayName: strings.TrimSpace(req.DisplayName),
		DataFormat:  req.DataFormat,
	}
	if err := h.storage.Sensors().Create(ctx, sensor); err != nil {
		log.Printf("create sensor error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("sensor registered: %s", sensor.ID)
	jsonCreated(w, sensorToResponse(sensor))
}

// GetByID returns a sensor by id.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	sensor, ok := h.loadSensor(w, r)
	if !ok {
		return
	}
	jsonOK(w, sensorToResponse(sensor))
}

// Update updates sensor metadata.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sensor, ok := h.loadSensor(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		sensor.Name = strings.TrimSpace(*req.Name)
	}
	if req.DisplayName != nil {
		sensor.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.DataFormat != nil {
		sensor.DataFormat = *req.DataFormat
	}

	if err := h.storage.Sensors().Update(r.Context(), sensor); err != nil {
		log.Printf("update sensor error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, sensorToResponse(sensor))
}

// Delete removes a sensor and, via cascade, its rules and readings.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.storage.Sensors().Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "sensor not found")
			return
		}
		log.Printf("delete sensor error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	log.Printf("sensor deleted: %s", id)
	jsonNoContent(w)
}

// Status returns the sensor's alarm badge state. The query is side-effect
// free and never consumes notification cooldowns.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sensor, ok := h.loadSensor(w, r)
	if !ok {
		return
	}

	status, err := h.status.Status(r.Context(), sensor.ID)
	if err != nil {
		log.Printf("sensor status error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	triggered := make([]string, len(status.Triggered))
	for i, t := range status.Triggered {
		triggered[i] = t.String()
	}
	jsonOK(w, map[string]any{
		"sensor_id": sensor.ID,
		"status":    status.Status.String(),
		"triggered": triggered,
	})
}

// Readings returns the sensor's most recent readings, newest first.
func (h *Handler) Readings(w http.ResponseWriter, r *http.Request) {
	sensor, ok := h.loadSensor(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	readings, err := h.storage.Readings().LatestForSensor(r.Context(), sensor.ID, limit)
	if err != nil {
		log.Printf("list readings error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, readings)
}

// Events returns the sensor's alarm event history, newest first.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	sensor, ok := h.loadSensor(w, r)
	if !ok {
		return
	}

	page, perPage := parsePagination(r)
	events, total, err := h.storage.Events().ListBySensor(r.Context(), sensor.ID, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("list events error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	items := make([]*EventResponse, len(events))
	for i, e := range events {
		items[i] = eventToResponse(e)
	}
	jsonOK(w, map[string]any{
		"items":    items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// ListEvents returns the alarm event history across all sensors.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)
	events, total, err := h.storage.Events().List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("list events error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	items := make([]*EventResponse, len(events))
	for i, e := range events {
		items[i] = eventToResponse(e)
	}
	jsonOK(w, map[string]any{
		"items":    items,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (h *Handler) loadSensor(w http.ResponseWriter, r *http.Request) (*models.Sensor, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "sensor id required")
		return nil, false
	}

	sensor, err := h.storage.Sensors().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "sensor not found")
			return nil, false
		}
		log.Printf("get sensor error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	return sensor, true
}

func parsePagination(r *http.Request) (page, perPage int) {
	page, perPage = 1, 50
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			perPage = n
		}
	}
	return page, perPage
}
