package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"presensi-backend/internal/geofence"
	"presensi-backend/internal/middleware"
	"presensi-backend/internal/worker"
)

type GeofenceHandler struct {
	monitor *geofence.Monitor
	redis   *redis.Client
}

func NewGeofenceHandler(monitor *geofence.Monitor, redisClient *redis.Client) *GeofenceHandler {
	return &GeofenceHandler{monitor: monitor, redis: redisClient}
}

// locationReport is the payload clients POST after collecting fixes. A
// non-empty error means the client's location layer failed to deliver.
type locationReport struct {
	Samples []geofence.Sample `json:"samples"`
	Error   string            `json:"error,omitempty"`
}

func (h *GeofenceHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req geofence.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.monitor.Start(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (h *GeofenceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	result, err := h.monitor.Stop(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *GeofenceHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	status, err := h.monitor.Status(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ReportLocations enqueues a batch for asynchronous processing and returns
// immediately. Clients fire and forget; results arrive over the event stream.
func (h *GeofenceHandler) ReportLocations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var report locationReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	batch := geofence.Batch{
		ID:         uuid.New(),
		UserID:     userID,
		Samples:    report.Samples,
		Error:      report.Error,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := worker.Enqueue(r.Context(), h.redis, batch); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue location batch", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id": batch.ID,
	})
}

// Check runs one processing cycle synchronously. The mobile app uses it for
// its foreground "am I checked in" refresh where queue latency is unwanted.
func (h *GeofenceHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var report locationReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	batch := geofence.Batch{
		ID:         uuid.New(),
		UserID:     userID,
		Samples:    report.Samples,
		Error:      report.Error,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := h.monitor.ProcessBatch(r.Context(), batch); err != nil {
		switch {
		case errors.Is(err, geofence.ErrConfigMissing):
			writeJSON(w, http.StatusConflict, errorResp("NOT_MONITORING", "Geofence monitoring is not active", r))
		case errors.Is(err, geofence.ErrPlatformDelivery):
			writeJSON(w, http.StatusBadRequest, errorResp("PLATFORM_ERROR", "Location delivery reported an error", r))
		default:
			handleServiceError(w, r, err)
		}
		return
	}

	status, err := h.monitor.Status(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
