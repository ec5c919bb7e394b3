package slots

import (
	"time"

	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/slotref"
)

// Window is one bookable time window for a date: either the projection of
// a persisted TimeSlot or a virtual window that has no row yet.
type Window struct {
	Ref               slotref.Ref
	AppointmentID     string
	Date              time.Time
	StartMinute       int
	EndMinute         int
	TotalCapacity     int
	AvailableCapacity int
	Materialized      bool
}

// StartMinutes generates the candidate start times for one working day by
// stepping [startMinute, endMinute) in duration-sized increments. Windows
// that would run past endMinute are dropped; no partial trailing slot.
func StartMinutes(entry model.ScheduleEntry, durationMins int) []int {
	if durationMins <= 0 || !entry.IsWorking {
		return nil
	}
	if entry.EndMinute <= entry.StartMinute {
		return nil
	}
	var starts []int
	for t := entry.StartMinute; t+durationMins <= entry.EndMinute; t += durationMins {
		starts = append(starts, t)
	}
	return starts
}

// ForDate derives the bookable windows for (appointment, date) from the
// day's schedule entry, overlaying already-persisted slots so their real
// capacity is preserved. Exhausted persisted slots are omitted. Output is
// chronological.
func ForDate(appt model.Appointment, entry model.ScheduleEntry, date time.Time, persisted []model.TimeSlot) []Window {
	starts := StartMinutes(entry, appt.DurationMins)
	if len(starts) == 0 {
		return nil
	}

	byStart := make(map[int]model.TimeSlot, len(persisted))
	for _, s := range persisted {
		byStart[s.StartMinute] = s
	}

	date = model.DateOf(date)
	windows := make([]Window, 0, len(starts))
	for _, start := range starts {
		if slot, ok := byStart[start]; ok {
			if slot.AvailableCapacity <= 0 {
				continue // fully booked, not offered
			}
			windows = append(windows, Window{
				Ref:               slotref.ForReal(slot.ID),
				AppointmentID:     appt.ID,
				Date:              date,
				StartMinute:       slot.StartMinute,
				EndMinute:         slot.EndMinute,
				TotalCapacity:     slot.TotalCapacity,
				AvailableCapacity: slot.AvailableCapacity,
				Materialized:      true,
			})
			continue
		}
		capacity := appt.MaxCapacity
		if capacity <= 0 {
			capacity = 1
		}
		windows = append(windows, Window{
			Ref:               slotref.ForVirtual(appt.ID, date, start),
			AppointmentID:     appt.ID,
			Date:              date,
			StartMinute:       start,
			EndMinute:         start + appt.DurationMins,
			TotalCapacity:     capacity,
			AvailableCapacity: capacity,
		})
	}
	return windows
}
