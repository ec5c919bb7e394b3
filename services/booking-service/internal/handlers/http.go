package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// AppointmentStore is the slice of persistence the appointment and
// question handlers need. Satisfied by storage.Store and the in-memory
// test store.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, appt model.Appointment) (string, error)
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListAppointmentsByOrganizer(ctx context.Context, organizerID string, publishedOnly bool, limit int) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, appt model.Appointment) error
	CreateQuestion(ctx context.Context, q model.Question) (string, error)
	ListQuestions(ctx context.Context, appointmentID string) ([]model.Question, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeServiceError maps domain errors onto HTTP statuses. Unknown
// errors become opaque 500s; the handler logs the detail.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, model.ErrSlotUnavailable):
		http.Error(w, "slot unavailable", http.StatusConflict)
	case errors.Is(err, model.ErrStatusConflict):
		http.Error(w, "booking is not in a valid state for this action", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
