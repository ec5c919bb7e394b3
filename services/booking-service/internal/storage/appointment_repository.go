package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

func (s *Store) CreateAppointment(ctx context.Context, appt model.Appointment) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointments
			(id, organizer_id, title, duration_minutes, location, max_capacity, is_active, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, appt.OrganizerID, appt.Title, appt.DurationMins, appt.Location, appt.MaxCapacity, appt.Active, appt.Published)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, organizer_id::text, title, duration_minutes, location, max_capacity,
			is_active, is_published, created_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(
		&appt.ID,
		&appt.OrganizerID,
		&appt.Title,
		&appt.DurationMins,
		&appt.Location,
		&appt.MaxCapacity,
		&appt.Active,
		&appt.Published,
		&appt.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *Store) ListAppointmentsByOrganizer(ctx context.Context, organizerID string, publishedOnly bool, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, organizer_id::text, title, duration_minutes, location, max_capacity,
			is_active, is_published, created_at
		FROM appointments
		WHERE organizer_id = $1
			AND ($2 = false OR (is_published AND is_active))
		ORDER BY created_at DESC
		LIMIT $3
	`, organizerID, publishedOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.OrganizerID,
			&appt.Title,
			&appt.DurationMins,
			&appt.Location,
			&appt.MaxCapacity,
			&appt.Active,
			&appt.Published,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpdateAppointment changes the organizer-mutable fields. Existing
// persisted slots keep their original window and capacity.
func (s *Store) UpdateAppointment(ctx context.Context, appt model.Appointment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET title = $3,
			duration_minutes = $4,
			location = $5,
			max_capacity = $6,
			is_active = $7,
			is_published = $8
		WHERE id = $1 AND organizer_id = $2
	`, appt.ID, appt.OrganizerID, appt.Title, appt.DurationMins, appt.Location, appt.MaxCapacity, appt.Active, appt.Published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointment_questions (id, appointment_id, label, is_required, position)
		VALUES ($1, $2, $3, $4, $5)
	`, id, q.AppointmentID, q.Label, q.Required, q.Position)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListQuestions(ctx context.Context, appointmentID string) ([]model.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, appointment_id::text, label, is_required, position
		FROM appointment_questions
		WHERE appointment_id = $1
		ORDER BY position ASC, id ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AppointmentID, &q.Label, &q.Required, &q.Position); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
