package storage

import (
	"context"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// ReplaceWeek swaps the appointment's entire weekly pattern in one
// transaction (delete-all then insert-all), so readers never observe a
// mix of old and new rows.
func (s *Store) ReplaceWeek(ctx context.Context, appointmentID string, entries []model.ScheduleEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM weekly_schedules WHERE appointment_id = $1
	`, appointmentID); err != nil {
		return err
	}

	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weekly_schedules (appointment_id, weekday, is_working, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, appointmentID, e.Weekday, e.IsWorking, e.StartMinute, e.EndMinute); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetScheduleDay(ctx context.Context, appointmentID string, weekday int) (model.ScheduleEntry, bool, error) {
	var e model.ScheduleEntry
	err := s.pool.QueryRow(ctx, `
		SELECT appointment_id::text, weekday, is_working, start_minute, end_minute
		FROM weekly_schedules
		WHERE appointment_id = $1 AND weekday = $2
	`, appointmentID, weekday).Scan(&e.AppointmentID, &e.Weekday, &e.IsWorking, &e.StartMinute, &e.EndMinute)
	if err != nil {
		if IsNoRows(err) {
			return model.ScheduleEntry{}, false, nil
		}
		return model.ScheduleEntry{}, false, err
	}
	return e, true, nil
}

func (s *Store) ListWeek(ctx context.Context, appointmentID string) ([]model.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT appointment_id::text, weekday, is_working, start_minute, end_minute
		FROM weekly_schedules
		WHERE appointment_id = $1
		ORDER BY weekday ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		if err := rows.Scan(&e.AppointmentID, &e.Weekday, &e.IsWorking, &e.StartMinute, &e.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
