package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/develper21/slotify/libs/auth"
	"github.com/develper21/slotify/services/booking-service/internal/booking"
	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// PublicHandler serves the unauthenticated customer surface: browsing
// appointments, listing a day's slots, and booking one.
type PublicHandler struct {
	svc    *booking.Service
	store  AppointmentStore
	logger *slog.Logger
}

func NewPublicHandler(svc *booking.Service, store AppointmentStore, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, store: store, logger: logger}
}

type slotItem struct {
	SlotID            string `json:"slot_id"`
	AppointmentID     string `json:"appointment_id"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	AvailableCapacity int    `json:"available_capacity"`
	TotalCapacity     int    `json:"total_capacity"`
}

type bookRequest struct {
	SlotID        string `json:"slot_id"`
	AppointmentID string `json:"appointment_id"`
	UserID        string `json:"user_id"`
	Seats         int    `json:"seats"`
	Answers       []struct {
		QuestionID string `json:"question_id"`
		Text       string `json:"text"`
	} `json:"answers"`
}

type bookResponse struct {
	BookingID string `json:"booking_id"`
	SlotID    string `json:"slot_id"`
	Status    string `json:"status"`
}

type publicAppointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	Title         string `json:"title"`
	DurationMins  int    `json:"duration_minutes"`
	Location      string `json:"location,omitempty"`
	MaxCapacity   int    `json:"max_capacity"`
}

func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	appointmentID := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if appointmentID == "" || dateStr == "" {
		http.Error(w, "appointment_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	windows, err := h.svc.AvailableSlots(r.Context(), appointmentID, date)
	if err != nil {
		h.logger.Error("slot listing failed", "appointment_id", appointmentID, "err", err)
		http.Error(w, "failed to list slots", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, len(windows))
	for _, win := range windows {
		items = append(items, slotItem{
			SlotID:            win.Ref.Encode(),
			AppointmentID:     win.AppointmentID,
			Date:              win.Date.Format("2006-01-02"),
			StartTime:         model.FormatClock(win.StartMinute),
			EndTime:           model.FormatClock(win.EndMinute),
			AvailableCapacity: win.AvailableCapacity,
			TotalCapacity:     win.TotalCapacity,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		req.UserID = strings.TrimSpace(r.Header.Get(auth.HeaderUserID))
	}
	if req.SlotID == "" {
		http.Error(w, "slot_id required", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user identity required", http.StatusBadRequest)
		return
	}

	answers := make([]model.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, model.Answer{
			QuestionID: strings.TrimSpace(a.QuestionID),
			Text:       strings.TrimSpace(a.Text),
		})
	}

	created, err := h.svc.CreateBooking(r.Context(), booking.CreateBookingInput{
		SlotID:        req.SlotID,
		AppointmentID: strings.TrimSpace(req.AppointmentID),
		UserID:        req.UserID,
		Seats:         req.Seats,
		Answers:       answers,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookResponse{
		BookingID: created.ID,
		SlotID:    created.SlotID,
		Status:    created.Status,
	})
}

func (h *PublicHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	organizerID := strings.TrimSpace(r.URL.Query().Get("organizer_id"))
	if organizerID == "" {
		http.Error(w, "organizer_id required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.store.ListAppointmentsByOrganizer(r.Context(), organizerID, true, limit)
	if err != nil {
		h.logger.Error("public appointment listing failed", "organizer_id", organizerID, "err", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]publicAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		if !appt.Active {
			continue
		}
		items = append(items, publicAppointmentItem{
			AppointmentID: appt.ID,
			Title:         appt.Title,
			DurationMins:  appt.DurationMins,
			Location:      appt.Location,
			MaxCapacity:   appt.MaxCapacity,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
