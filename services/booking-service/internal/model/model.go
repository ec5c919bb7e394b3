package model

import (
	"fmt"
	"time"
)

// Appointment is a bookable service template owned by an organizer.
// Identity is immutable; duration, location and capacity may change at
// any time without resizing already-persisted slots.
type Appointment struct {
	ID           string
	OrganizerID  string
	Title        string
	DurationMins int
	Location     string
	MaxCapacity  int
	Active       bool
	Published    bool
	CreatedAt    time.Time
}

// ScheduleEntry is one weekday of an appointment's recurring weekly
// availability. Times of day are minutes since midnight, organizer-local.
type ScheduleEntry struct {
	AppointmentID string
	Weekday       int // 0 = Sunday .. 6 = Saturday
	IsWorking     bool
	StartMinute   int
	EndMinute     int
}

// TimeSlot is a materialized bookable window. At most one row exists per
// (appointment, date, start minute); capacity only moves through atomic
// conditional updates.
type TimeSlot struct {
	ID                string
	AppointmentID     string
	SlotDate          time.Time // date component only, UTC midnight
	StartMinute       int
	EndMinute         int
	TotalCapacity     int
	AvailableCapacity int
	CreatedAt         time.Time
}

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Booking always references a materialized TimeSlot; virtual windows are
// promoted before a row is written.
type Booking struct {
	ID            string
	AppointmentID string
	SlotID        string
	UserID        string
	Seats         int
	Status        string
	CancelReason  string
	CancelledAt   *time.Time
	CreatedAt     time.Time
}

// Question is an organizer-defined intake question for an appointment.
type Question struct {
	ID            string
	AppointmentID string
	Label         string
	Required      bool
	Position      int
}

// Answer is a customer's free-text response, persisted with the booking.
type Answer struct {
	QuestionID string
	Text       string
}

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// FormatClock renders minutes-since-midnight as HH:MM.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseClock parses HH:MM into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
