package handlers

import (
	"net/http"
	"strconv"
	"time"

	"presensi-backend/internal/middleware"
	"presensi-backend/internal/models"
	"presensi-backend/internal/services"
)

type AttendanceHandler struct {
	attendance *services.AttendanceService
}

func NewAttendanceHandler(attendance *services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	record, err := h.attendance.TodayView(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if record == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": record})
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	q := models.AttendanceListQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		q.Offset, _ = strconv.Atoi(v)
	}

	records, err := h.attendance.List(r.Context(), userID, q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []models.Attendance{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendances": records})
}

func (h *AttendanceHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	created, err := h.attendance.ManualClockIn(r.Context(), userID, time.Now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !created {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Already clocked in today", r))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Clocked in"})
}

func (h *AttendanceHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	closed, err := h.attendance.ManualClockOut(r.Context(), userID, time.Now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !closed {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "No open session to close", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Clocked out"})
}
