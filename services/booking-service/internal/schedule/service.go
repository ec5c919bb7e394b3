package schedule

import (
	"context"
	"fmt"
	"sort"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// Store is the schedule persistence port. ReplaceWeek must swap the full
// set of rows in one transaction so a partial write never leaves a mixed
// old/new schedule visible.
type Store interface {
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ReplaceWeek(ctx context.Context, appointmentID string, entries []model.ScheduleEntry) error
	ListWeek(ctx context.Context, appointmentID string) ([]model.ScheduleEntry, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

const minutesPerDay = 24 * 60

// SetWeeklySchedule validates and wholesale-replaces the appointment's
// weekly pattern. organizerID guards ownership; pass "" to skip the check
// (internal callers).
func (s *Service) SetWeeklySchedule(ctx context.Context, organizerID, appointmentID string, entries []model.ScheduleEntry) error {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if organizerID != "" && appt.OrganizerID != organizerID {
		return model.ErrNotFound
	}

	if len(entries) > 7 {
		return fmt.Errorf("%w: at most one entry per weekday", model.ErrValidation)
	}
	seen := map[int]bool{}
	normalized := make([]model.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.Weekday < 0 || e.Weekday > 6 {
			return fmt.Errorf("%w: weekday %d out of range", model.ErrValidation, e.Weekday)
		}
		if seen[e.Weekday] {
			return fmt.Errorf("%w: duplicate weekday %d", model.ErrValidation, e.Weekday)
		}
		seen[e.Weekday] = true

		if e.IsWorking {
			if e.StartMinute < 0 || e.EndMinute > minutesPerDay || e.StartMinute >= e.EndMinute {
				return fmt.Errorf("%w: weekday %d has invalid working window", model.ErrValidation, e.Weekday)
			}
		} else {
			e.StartMinute = 0
			e.EndMinute = 0
		}
		e.AppointmentID = appointmentID
		normalized = append(normalized, e)
	}

	return s.store.ReplaceWeek(ctx, appointmentID, normalized)
}

// WeekForEdit returns all seven weekdays in order, filling weekdays with
// no stored row as closed days, for the organizer's edit form.
func (s *Service) WeekForEdit(ctx context.Context, organizerID, appointmentID string) ([]model.ScheduleEntry, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if organizerID != "" && appt.OrganizerID != organizerID {
		return nil, model.ErrNotFound
	}

	stored, err := s.store.ListWeek(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	week := make([]model.ScheduleEntry, 7)
	for wd := 0; wd < 7; wd++ {
		week[wd] = model.ScheduleEntry{AppointmentID: appointmentID, Weekday: wd}
	}
	for _, e := range stored {
		if e.Weekday >= 0 && e.Weekday < 7 {
			week[e.Weekday] = e
		}
	}
	sort.Slice(week, func(i, j int) bool { return week[i].Weekday < week[j].Weekday })
	return week, nil
}
