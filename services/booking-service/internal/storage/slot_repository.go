package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

const slotColumns = `id::text, appointment_id::text, slot_date, start_minute, end_minute,
	total_capacity, available_capacity, created_at`

func scanSlot(row pgx.Row) (model.TimeSlot, error) {
	var slot model.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.AppointmentID,
		&slot.SlotDate,
		&slot.StartMinute,
		&slot.EndMinute,
		&slot.TotalCapacity,
		&slot.AvailableCapacity,
		&slot.CreatedAt,
	)
	return slot, err
}

func (s *Store) GetSlot(ctx context.Context, slotID string) (model.TimeSlot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
	`, slotID))
	if err != nil {
		if IsNoRows(err) {
			return model.TimeSlot{}, model.ErrNotFound
		}
		return model.TimeSlot{}, err
	}
	return slot, nil
}

func (s *Store) ListSlots(ctx context.Context, appointmentID string, date time.Time) ([]model.TimeSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE appointment_id = $1 AND slot_date = $2
		ORDER BY start_minute ASC
	`, appointmentID, model.DateOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// MaterializeSlot promotes a virtual window to a persisted row. The
// unique index on (appointment_id, slot_date, start_minute) is the
// concurrency control point: when a concurrent caller won the insert,
// the existing row is fetched and adopted, so exactly one row per window
// ever exists.
func (s *Store) MaterializeSlot(ctx context.Context, slot model.TimeSlot) (model.TimeSlot, bool, error) {
	inserted, err := scanSlot(s.pool.QueryRow(ctx, `
		INSERT INTO time_slots
			(id, appointment_id, slot_date, start_minute, end_minute, total_capacity, available_capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (appointment_id, slot_date, start_minute) DO NOTHING
		RETURNING `+slotColumns+`
	`, uuid.NewString(), slot.AppointmentID, model.DateOf(slot.SlotDate), slot.StartMinute,
		slot.EndMinute, slot.TotalCapacity, slot.AvailableCapacity))
	if err == nil {
		return inserted, true, nil
	}
	if !IsNoRows(err) {
		return model.TimeSlot{}, false, err
	}

	// Conflict path: another caller materialized the window first.
	existing, err := scanSlot(s.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE appointment_id = $1 AND slot_date = $2 AND start_minute = $3
	`, slot.AppointmentID, model.DateOf(slot.SlotDate), slot.StartMinute))
	if err != nil {
		return model.TimeSlot{}, false, err
	}
	return existing, false, nil
}

// reserveCapacity is the single atomic decrement; zero rows affected
// means capacity was insufficient. Runs inside the booking transaction.
func (s *Store) reserveCapacity(ctx context.Context, tx pgx.Tx, slotID string, seats int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE time_slots
		SET available_capacity = available_capacity - $2
		WHERE id = $1 AND available_capacity >= $2
	`, slotID, seats)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// restoreCapacity returns seats to a slot, capped at total capacity.
func (s *Store) restoreCapacity(ctx context.Context, tx pgx.Tx, slotID string, seats int) error {
	_, err := tx.Exec(ctx, `
		UPDATE time_slots
		SET available_capacity = LEAST(total_capacity, available_capacity + $2)
		WHERE id = $1
	`, slotID, seats)
	return err
}
