package booking

import (
	"context"
	"time"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// Store is the persistence port the allocator runs against. The Postgres
// implementation lives in internal/storage; tests use the in-memory one
// in internal/storage/memory.
//
// Two methods carry the core's concurrency guarantees and must be atomic:
//
//   - MaterializeSlot inserts the slot row guarded by the unique key
//     (appointment, date, start). On a duplicate it returns the already
//     existing row, so at most one row per window ever exists no matter
//     how many callers race.
//   - ReserveBooking persists the booking plus its answers and decrements
//     available capacity in one transaction, using a conditional update
//     that fails with model.ErrSlotUnavailable when capacity is short.
//     No client-side read-modify-write on capacity is permitted.
type Store interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	GetScheduleDay(ctx context.Context, appointmentID string, weekday int) (model.ScheduleEntry, bool, error)

	ListSlots(ctx context.Context, appointmentID string, date time.Time) ([]model.TimeSlot, error)
	GetSlot(ctx context.Context, slotID string) (model.TimeSlot, error)
	// MaterializeSlot returns the authoritative row and whether this call
	// created it.
	MaterializeSlot(ctx context.Context, slot model.TimeSlot) (model.TimeSlot, bool, error)

	ListQuestions(ctx context.Context, appointmentID string) ([]model.Question, error)

	ReserveBooking(ctx context.Context, b model.Booking, answers []model.Answer) (model.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (model.Booking, error)
	// CancelBooking flips the status and restores the booking's seats to
	// the slot, capped at total capacity, in one transaction.
	CancelBooking(ctx context.Context, bookingID, reason string) (model.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID, from, to string) (model.Booking, error)
	ListBookings(ctx context.Context, appointmentID string, limit int) ([]model.Booking, error)
}
