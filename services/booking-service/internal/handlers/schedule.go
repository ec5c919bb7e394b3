package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/develper21/slotify/libs/auth"
	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/schedule"
)

// ScheduleHandler serves the organizer's weekly availability editor.
type ScheduleHandler struct {
	svc    *schedule.Service
	logger *slog.Logger
}

func NewScheduleHandler(svc *schedule.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

type scheduleEntryPayload struct {
	Weekday   int    `json:"weekday"`
	IsWorking bool   `json:"is_working"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type setScheduleRequest struct {
	AppointmentID string                 `json:"appointment_id"`
	Entries       []scheduleEntryPayload `json:"entries"`
}

// Schedule dispatches on method: PUT replaces the week, GET returns the
// seven-row edit view.
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	if organizerID == "" {
		http.Error(w, "organizer identity required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.put(w, r, organizerID)
	case http.MethodGet:
		h.get(w, r, organizerID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) put(w http.ResponseWriter, r *http.Request, organizerID string) {
	var req setScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	entries := make([]model.ScheduleEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entry := model.ScheduleEntry{Weekday: e.Weekday, IsWorking: e.IsWorking}
		if e.IsWorking {
			start, err := model.ParseClock(strings.TrimSpace(e.StartTime))
			if err != nil {
				http.Error(w, "invalid start_time, want HH:MM", http.StatusBadRequest)
				return
			}
			end, err := model.ParseClock(strings.TrimSpace(e.EndTime))
			if err != nil {
				http.Error(w, "invalid end_time, want HH:MM", http.StatusBadRequest)
				return
			}
			entry.StartMinute = start
			entry.EndMinute = end
		}
		entries = append(entries, entry)
	}

	if err := h.svc.SetWeeklySchedule(r.Context(), organizerID, req.AppointmentID, entries); err != nil {
		writeServiceError(w, err)
		return
	}
	h.logger.Info("weekly schedule replaced", "appointment_id", req.AppointmentID, "entries", len(entries))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) get(w http.ResponseWriter, r *http.Request, organizerID string) {
	appointmentID := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if appointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	week, err := h.svc.WeekForEdit(r.Context(), organizerID, appointmentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]scheduleEntryPayload, 0, len(week))
	for _, e := range week {
		item := scheduleEntryPayload{Weekday: e.Weekday, IsWorking: e.IsWorking}
		if e.IsWorking {
			item.StartTime = model.FormatClock(e.StartMinute)
			item.EndTime = model.FormatClock(e.EndMinute)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}
