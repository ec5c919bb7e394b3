package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/slotref"
	"github.com/develper21/slotify/services/booking-service/internal/slots"
)

// Service is the booking allocator: it turns a customer's slot selection
// into a durable booking, promoting virtual windows to persisted slots on
// first touch.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// maxGenerateDays bounds eager slot generation to one quarter per call.
const maxGenerateDays = 92

// AvailableSlots returns the ordered bookable windows for a date: a mix
// of persisted slots (with live capacity) and virtual windows. A missing
// appointment, an inactive one, or a closed day all yield an empty list.
func (s *Service) AvailableSlots(ctx context.Context, appointmentID string, date time.Time) ([]slots.Window, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !appt.Active {
		return nil, nil
	}

	entry, ok, err := s.store.GetScheduleDay(ctx, appointmentID, int(date.Weekday()))
	if err != nil {
		return nil, err
	}
	if !ok || !entry.IsWorking {
		return nil, nil // closed day: normal, not an error
	}

	persisted, err := s.store.ListSlots(ctx, appointmentID, model.DateOf(date))
	if err != nil {
		return nil, err
	}
	return slots.ForDate(appt, entry, date, persisted), nil
}

type CreateBookingInput struct {
	SlotID        string // wire-form slot id, real or virtual
	AppointmentID string // optional cross-check against the resolved slot
	UserID        string
	Seats         int
	Answers       []model.Answer
}

// CreateBooking resolves the selected slot (materializing it first when
// virtual), re-validates capacity and required answers, then reserves
// seats atomically. The returned booking is in status pending.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (model.Booking, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return model.Booking{}, fmt.Errorf("%w: user id required", model.ErrValidation)
	}
	seats := in.Seats
	if seats == 0 {
		seats = 1
	}
	if seats < 1 {
		return model.Booking{}, fmt.Errorf("%w: seats must be positive", model.ErrValidation)
	}

	ref, err := slotref.Parse(in.SlotID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	slot, err := s.resolveSlot(ctx, ref)
	if err != nil {
		return model.Booking{}, err
	}
	if in.AppointmentID != "" && in.AppointmentID != slot.AppointmentID {
		return model.Booking{}, fmt.Errorf("%w: slot does not belong to appointment", model.ErrValidation)
	}

	// Early capacity check; the decrement inside ReserveBooking is the
	// authoritative one.
	if slot.AvailableCapacity < seats {
		return model.Booking{}, model.ErrSlotUnavailable
	}

	answers, err := s.validateAnswers(ctx, slot.AppointmentID, in.Answers)
	if err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		AppointmentID: slot.AppointmentID,
		SlotID:        slot.ID,
		UserID:        in.UserID,
		Seats:         seats,
		Status:        model.BookingPending,
	}
	created, err := s.store.ReserveBooking(ctx, b, answers)
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking created",
		"booking_id", created.ID,
		"appointment_id", created.AppointmentID,
		"slot_id", created.SlotID,
		"seats", created.Seats,
	)
	return created, nil
}

// resolveSlot maps a slot ref onto a persisted row. Virtual refs are
// checked against the live schedule and then materialized; losing the
// materialization race is recovered here by adopting the winner's row.
func (s *Service) resolveSlot(ctx context.Context, ref slotref.Ref) (model.TimeSlot, error) {
	if ref.Kind == slotref.Real {
		slot, err := s.store.GetSlot(ctx, ref.SlotID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.TimeSlot{}, model.ErrSlotUnavailable
			}
			return model.TimeSlot{}, err
		}
		return slot, nil
	}

	appt, err := s.store.GetAppointment(ctx, ref.AppointmentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TimeSlot{}, fmt.Errorf("appointment %s: %w", ref.AppointmentID, model.ErrNotFound)
		}
		return model.TimeSlot{}, err
	}

	entry, ok, err := s.store.GetScheduleDay(ctx, appt.ID, int(ref.Date.Weekday()))
	if err != nil {
		return model.TimeSlot{}, err
	}
	if !ok || !entry.IsWorking || !validStart(entry, appt.DurationMins, ref.StartMinute) {
		// The schedule may have changed since the customer fetched slots.
		return model.TimeSlot{}, model.ErrSlotUnavailable
	}

	capacity := appt.MaxCapacity
	if capacity <= 0 {
		capacity = 1
	}
	slot, created, err := s.store.MaterializeSlot(ctx, model.TimeSlot{
		AppointmentID:     appt.ID,
		SlotDate:          ref.Date,
		StartMinute:       ref.StartMinute,
		EndMinute:         ref.StartMinute + appt.DurationMins,
		TotalCapacity:     capacity,
		AvailableCapacity: capacity,
	})
	if err != nil {
		return model.TimeSlot{}, err
	}
	if !created {
		s.logger.Debug("slot already materialized by concurrent booking",
			"slot_id", slot.ID,
			"appointment_id", appt.ID,
		)
	}
	return slot, nil
}

func validStart(entry model.ScheduleEntry, durationMins, startMinute int) bool {
	for _, start := range slots.StartMinutes(entry, durationMins) {
		if start == startMinute {
			return true
		}
	}
	return false
}

func (s *Service) validateAnswers(ctx context.Context, appointmentID string, answers []model.Answer) ([]model.Answer, error) {
	questions, err := s.store.ListQuestions(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		known[q.ID] = q
	}

	answered := make(map[string]bool, len(answers))
	out := make([]model.Answer, 0, len(answers))
	for _, a := range answers {
		q, ok := known[a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown question %s", model.ErrValidation, a.QuestionID)
		}
		text := strings.TrimSpace(a.Text)
		if q.Required && text == "" {
			return nil, fmt.Errorf("%w: answer required for %q", model.ErrValidation, q.Label)
		}
		answered[a.QuestionID] = true
		out = append(out, model.Answer{QuestionID: a.QuestionID, Text: text})
	}
	for _, q := range questions {
		if q.Required && !answered[q.ID] {
			return nil, fmt.Errorf("%w: answer required for %q", model.ErrValidation, q.Label)
		}
	}
	return out, nil
}

// CancelBooking cancels the booking and returns its seats to the slot.
// Cancelling an already-cancelled booking is a no-op.
func (s *Service) CancelBooking(ctx context.Context, bookingID, reason string) (model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	switch b.Status {
	case model.BookingCancelled:
		return b, nil
	case model.BookingCompleted:
		return model.Booking{}, fmt.Errorf("%w: completed booking cannot be cancelled", model.ErrStatusConflict)
	}

	cancelled, err := s.store.CancelBooking(ctx, bookingID, reason)
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking cancelled", "booking_id", bookingID, "seats_restored", cancelled.Seats)
	return cancelled, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *Service) ConfirmBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	return s.store.UpdateBookingStatus(ctx, bookingID, model.BookingPending, model.BookingConfirmed)
}

// CompleteBooking moves a confirmed booking to completed.
func (s *Service) CompleteBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	return s.store.UpdateBookingStatus(ctx, bookingID, model.BookingConfirmed, model.BookingCompleted)
}

func (s *Service) GetBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	return s.store.GetBooking(ctx, bookingID)
}

func (s *Service) ListBookings(ctx context.Context, appointmentID string, limit int) ([]model.Booking, error) {
	return s.store.ListBookings(ctx, appointmentID, limit)
}

// GenerateSlots eagerly materializes every window in [from, to]. Safe to
// call for overlapping ranges; existing rows are left untouched. Returns
// the number of rows created.
func (s *Service) GenerateSlots(ctx context.Context, appointmentID string, from, to time.Time) (int, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return 0, err
	}

	from = model.DateOf(from)
	to = model.DateOf(to)
	if to.Before(from) {
		return 0, fmt.Errorf("%w: range end before start", model.ErrValidation)
	}
	if int(to.Sub(from).Hours()/24) > maxGenerateDays {
		return 0, fmt.Errorf("%w: range exceeds %d days", model.ErrValidation, maxGenerateDays)
	}

	capacity := appt.MaxCapacity
	if capacity <= 0 {
		capacity = 1
	}

	created := 0
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		entry, ok, err := s.store.GetScheduleDay(ctx, appointmentID, int(date.Weekday()))
		if err != nil {
			return created, err
		}
		if !ok || !entry.IsWorking {
			continue
		}
		for _, start := range slots.StartMinutes(entry, appt.DurationMins) {
			_, inserted, err := s.store.MaterializeSlot(ctx, model.TimeSlot{
				AppointmentID:     appointmentID,
				SlotDate:          date,
				StartMinute:       start,
				EndMinute:         start + appt.DurationMins,
				TotalCapacity:     capacity,
				AvailableCapacity: capacity,
			})
			if err != nil {
				return created, err
			}
			if inserted {
				created++
			}
		}
	}
	return created, nil
}
