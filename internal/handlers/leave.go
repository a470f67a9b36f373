package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"presensi-backend/internal/middleware"
	"presensi-backend/internal/models"
	"presensi-backend/internal/services"
)

type LeaveHandler struct {
	leave *services.LeaveService
}

func NewLeaveHandler(leave *services.LeaveService) *LeaveHandler {
	return &LeaveHandler{leave: leave}
}

func (h *LeaveHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	lr, err := h.leave.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lr)
}

func (h *LeaveHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	requests, err := h.leave.List(r.Context(), userID, limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if requests == nil {
		requests = []models.LeaveRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leave_requests": requests})
}
