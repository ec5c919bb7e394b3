package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/outbox"
)

const bookingColumns = `id::text, appointment_id::text, slot_id::text, user_id, seats, status,
	COALESCE(cancel_reason, ''), cancelled_at, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.AppointmentID,
		&b.SlotID,
		&b.UserID,
		&b.Seats,
		&b.Status,
		&b.CancelReason,
		&cancelledAt,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

// ReserveBooking inserts the booking and its answers and decrements slot
// capacity as one transaction. The conditional update is authoritative:
// if it touches no row the whole attempt rolls back with
// model.ErrSlotUnavailable and no partial booking remains.
func (s *Store) ReserveBooking(ctx context.Context, b model.Booking, answers []model.Answer) (model.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	created, err := scanBooking(tx.QueryRow(ctx, `
		INSERT INTO bookings (id, appointment_id, slot_id, user_id, seats, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+bookingColumns+`
	`, id, b.AppointmentID, b.SlotID, b.UserID, b.Seats, b.Status))
	if err != nil {
		return model.Booking{}, err
	}

	for _, a := range answers {
		if _, err := tx.Exec(ctx, `
			INSERT INTO booking_answers (booking_id, question_id, answer_text)
			VALUES ($1, $2, $3)
		`, id, a.QuestionID, a.Text); err != nil {
			return model.Booking{}, err
		}
	}

	ok, err := s.reserveCapacity(ctx, tx, b.SlotID, b.Seats)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		return model.Booking{}, model.ErrSlotUnavailable
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return created, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (model.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, bookingID))
	if err != nil {
		if IsNoRows(err) {
			return model.Booking{}, model.ErrNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// CancelBooking flips the status, restores the seats to the slot and
// queues the cancellation event, all in one transaction. The status
// guard in the UPDATE makes a lost race (concurrent cancel) a conflict
// rather than a double restore.
func (s *Store) CancelBooking(ctx context.Context, bookingID, reason string) (model.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cancelled, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancel_reason = $2
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING `+bookingColumns+`
	`, bookingID, reason))
	if err != nil {
		if IsNoRows(err) {
			return model.Booking{}, model.ErrStatusConflict
		}
		return model.Booking{}, err
	}

	if err := s.restoreCapacity(ctx, tx, cancelled.SlotID, cancelled.Seats); err != nil {
		return model.Booking{}, err
	}

	if err := s.insertBookingEvent(ctx, tx, outbox.EventBookingCancelled, cancelled, map[string]any{
		"reason":       reason,
		"cancelled_at": cancelled.CancelledAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return model.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return cancelled, nil
}

// UpdateBookingStatus performs a guarded lifecycle transition. A
// confirmed transition also queues the confirmation event.
func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID, from, to string) (model.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns+`
	`, bookingID, from, to))
	if err != nil {
		if !IsNoRows(err) {
			return model.Booking{}, err
		}
		// Distinguish a missing booking from a wrong-state one.
		if _, getErr := s.GetBooking(ctx, bookingID); getErr != nil {
			return model.Booking{}, getErr
		}
		return model.Booking{}, fmt.Errorf("%w: booking is not %s", model.ErrStatusConflict, from)
	}

	if to == model.BookingConfirmed {
		if err := s.insertBookingEvent(ctx, tx, outbox.EventBookingConfirmed, updated, nil); err != nil {
			return model.Booking{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return updated, nil
}

func (s *Store) ListBookings(ctx context.Context, appointmentID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE appointment_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, appointmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// insertBookingEvent enriches the lifecycle event with the slot's window
// so notification templates need no further lookups.
func (s *Store) insertBookingEvent(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking, extra map[string]any) error {
	var slotDate time.Time
	var startMinute, endMinute int
	err := tx.QueryRow(ctx, `
		SELECT slot_date, start_minute, end_minute
		FROM time_slots
		WHERE id = $1
	`, b.SlotID).Scan(&slotDate, &startMinute, &endMinute)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"booking_id":     b.ID,
		"appointment_id": b.AppointmentID,
		"slot_id":        b.SlotID,
		"user_id":        b.UserID,
		"seats":          b.Seats,
		"status":         b.Status,
		"slot_date":      slotDate.Format("2006-01-02"),
		"start_time":     model.FormatClock(startMinute),
		"end_time":       model.FormatClock(endMinute),
	}
	for k, v := range extra {
		fields[k] = v
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
