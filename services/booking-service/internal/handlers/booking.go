package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/develper21/slotify/libs/auth"
	"github.com/develper21/slotify/services/booking-service/internal/booking"
	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// BookingHandler serves the authenticated booking management surface.
type BookingHandler struct {
	svc    *booking.Service
	store  AppointmentStore
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, store AppointmentStore, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, store: store, logger: logger}
}

type cancelRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

type bookingStatusRequest struct {
	BookingID string `json:"booking_id"`
}

type bookingItem struct {
	BookingID     string `json:"booking_id"`
	AppointmentID string `json:"appointment_id"`
	SlotID        string `json:"slot_id"`
	UserID        string `json:"user_id"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		BookingID:     b.ID,
		AppointmentID: b.AppointmentID,
		SlotID:        b.SlotID,
		UserID:        b.UserID,
		Seats:         b.Seats,
		Status:        b.Status,
		CancelReason:  b.CancelReason,
		CreatedAt:     b.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if b.CancelledAt != nil {
		item.CancelledAt = b.CancelledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return item
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}

	existing, err := h.svc.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.callerMayTouch(r, existing) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	cancelled, err := h.svc.CancelBooking(r.Context(), req.BookingID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(cancelled))
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ConfirmBooking)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CompleteBooking)
}

// transition handles the confirm/complete pair; both are organizer-only
// status changes that differ only in the service call.
func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, bookingID string) (model.Booking, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}

	existing, err := h.svc.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	if !h.ownsAppointment(r, organizerID, existing.AppointmentID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	updated, err := fn(r.Context(), req.BookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(updated))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	appointmentID := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if organizerID == "" || appointmentID == "" {
		http.Error(w, "organizer identity and appointment_id required", http.StatusBadRequest)
		return
	}
	if !h.ownsAppointment(r, organizerID, appointmentID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	bookings, err := h.svc.ListBookings(r.Context(), appointmentID, limit)
	if err != nil {
		h.logger.Error("booking listing failed", "appointment_id", appointmentID, "err", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, items)
}

type generateSlotsRequest struct {
	AppointmentID string `json:"appointment_id"`
	From          string `json:"from"`
	To            string `json:"to"`
}

type generateSlotsResponse struct {
	Created int `json:"created"`
}

func (h *BookingHandler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	from, err := model.ParseDate(strings.TrimSpace(req.From))
	if err != nil {
		http.Error(w, "invalid from date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := model.ParseDate(strings.TrimSpace(req.To))
	if err != nil {
		http.Error(w, "invalid to date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	if !h.ownsAppointment(r, organizerID, req.AppointmentID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	created, err := h.svc.GenerateSlots(r.Context(), req.AppointmentID, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateSlotsResponse{Created: created})
}

// callerMayTouch allows the booking's own customer or the owning
// organizer to act on it.
func (h *BookingHandler) callerMayTouch(r *http.Request, b model.Booking) bool {
	if userID := strings.TrimSpace(r.Header.Get(auth.HeaderUserID)); userID != "" && userID == b.UserID {
		return true
	}
	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	return h.ownsAppointment(r, organizerID, b.AppointmentID)
}

func (h *BookingHandler) ownsAppointment(r *http.Request, organizerID, appointmentID string) bool {
	if organizerID == "" {
		return false
	}
	appt, err := h.store.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		return false
	}
	return appt.OrganizerID == organizerID
}
