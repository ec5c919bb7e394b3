// Package memory is an in-memory implementation of the booking and
// schedule ports. It mirrors the Postgres store's atomicity under one
// mutex: slot materialization is first-write-wins and capacity moves
// only through conditional check-and-decrement. Used by tests and the
// local dev mode; never a package-level singleton.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/develper21/slotify/services/booking-service/internal/model"
)

type Store struct {
	mu           sync.Mutex
	appointments map[string]model.Appointment
	schedules    map[string]map[int]model.ScheduleEntry // appointment -> weekday
	slots        map[string]model.TimeSlot              // slot id
	slotsByKey   map[string]string                      // appt|date|start -> slot id
	bookings     map[string]model.Booking
	answers      map[string][]model.Answer // booking id
	questions    map[string][]model.Question
}

func NewStore() *Store {
	return &Store{
		appointments: map[string]model.Appointment{},
		schedules:    map[string]map[int]model.ScheduleEntry{},
		slots:        map[string]model.TimeSlot{},
		slotsByKey:   map[string]string{},
		bookings:     map[string]model.Booking{},
		answers:      map[string][]model.Answer{},
		questions:    map[string][]model.Question{},
	}
}

func slotKey(appointmentID string, date time.Time, startMinute int) string {
	return fmt.Sprintf("%s|%s|%d", appointmentID, date.Format("2006-01-02"), startMinute)
}

func (s *Store) CreateAppointment(_ context.Context, appt model.Appointment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.CreatedAt = time.Now().UTC()
	s.appointments[appt.ID] = appt
	return appt.ID, nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, nil
}

func (s *Store) ListAppointmentsByOrganizer(_ context.Context, organizerID string, publishedOnly bool, limit int) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, appt := range s.appointments {
		if appt.OrganizerID != organizerID {
			continue
		}
		if publishedOnly && (!appt.Published || !appt.Active) {
			continue
		}
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateAppointment(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.appointments[appt.ID]
	if !ok || existing.OrganizerID != appt.OrganizerID {
		return model.ErrNotFound
	}
	appt.CreatedAt = existing.CreatedAt
	s.appointments[appt.ID] = appt
	return nil
}

func (s *Store) ReplaceWeek(_ context.Context, appointmentID string, entries []model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	week := map[int]model.ScheduleEntry{}
	for _, e := range entries {
		week[e.Weekday] = e
	}
	s.schedules[appointmentID] = week
	return nil
}

func (s *Store) GetScheduleDay(_ context.Context, appointmentID string, weekday int) (model.ScheduleEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.schedules[appointmentID][weekday]
	return e, ok, nil
}

func (s *Store) ListWeek(_ context.Context, appointmentID string) ([]model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ScheduleEntry
	for _, e := range s.schedules[appointmentID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out, nil
}

func (s *Store) ListSlots(_ context.Context, appointmentID string, date time.Time) ([]model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	date = model.DateOf(date)
	var out []model.TimeSlot
	for _, slot := range s.slots {
		if slot.AppointmentID == appointmentID && slot.SlotDate.Equal(date) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out, nil
}

func (s *Store) GetSlot(_ context.Context, slotID string) (model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return model.TimeSlot{}, model.ErrNotFound
	}
	return slot, nil
}

func (s *Store) MaterializeSlot(_ context.Context, slot model.TimeSlot) (model.TimeSlot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot.SlotDate = model.DateOf(slot.SlotDate)
	key := slotKey(slot.AppointmentID, slot.SlotDate, slot.StartMinute)
	if existingID, ok := s.slotsByKey[key]; ok {
		return s.slots[existingID], false, nil
	}

	slot.ID = uuid.NewString()
	slot.CreatedAt = time.Now().UTC()
	s.slots[slot.ID] = slot
	s.slotsByKey[key] = slot.ID
	return slot, true, nil
}

func (s *Store) CreateQuestion(_ context.Context, q model.Question) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = uuid.NewString()
	s.questions[q.AppointmentID] = append(s.questions[q.AppointmentID], q)
	return q.ID, nil
}

func (s *Store) ListQuestions(_ context.Context, appointmentID string) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Question(nil), s.questions[appointmentID]...), nil
}

func (s *Store) ReserveBooking(_ context.Context, b model.Booking, answers []model.Answer) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[b.SlotID]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	if slot.AvailableCapacity < b.Seats {
		return model.Booking{}, model.ErrSlotUnavailable
	}
	slot.AvailableCapacity -= b.Seats
	s.slots[slot.ID] = slot

	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()
	s.bookings[b.ID] = b
	s.answers[b.ID] = append([]model.Answer(nil), answers...)
	return b, nil
}

func (s *Store) GetBooking(_ context.Context, bookingID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return b, nil
}

func (s *Store) CancelBooking(_ context.Context, bookingID, reason string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		return model.Booking{}, model.ErrStatusConflict
	}

	now := time.Now().UTC()
	b.Status = model.BookingCancelled
	b.CancelReason = reason
	b.CancelledAt = &now
	s.bookings[bookingID] = b

	if slot, ok := s.slots[b.SlotID]; ok {
		slot.AvailableCapacity += b.Seats
		if slot.AvailableCapacity > slot.TotalCapacity {
			slot.AvailableCapacity = slot.TotalCapacity
		}
		s.slots[slot.ID] = slot
	}
	return b, nil
}

func (s *Store) UpdateBookingStatus(_ context.Context, bookingID, from, to string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	if b.Status != from {
		return model.Booking{}, fmt.Errorf("%w: booking is not %s", model.ErrStatusConflict, from)
	}
	b.Status = to
	s.bookings[bookingID] = b
	return b, nil
}

func (s *Store) ListBookings(_ context.Context, appointmentID string, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.AppointmentID == appointmentID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Answers returns the stored answers for a booking (test helper).
func (s *Store) Answers(bookingID string) []model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Answer(nil), s.answers[bookingID]...)
}

// SlotCount reports how many slot rows exist (test helper).
func (s *Store) SlotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
