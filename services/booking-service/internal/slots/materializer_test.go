package slots

import (
	"testing"
	"time"

	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/slotref"
)

func testAppointment(durationMins, maxCapacity int) model.Appointment {
	return model.Appointment{
		ID:           "apt-1",
		OrganizerID:  "org-1",
		Title:        "Intro call",
		DurationMins: durationMins,
		MaxCapacity:  maxCapacity,
		Active:       true,
		Published:    true,
	}
}

func workingDay(start, end int) model.ScheduleEntry {
	return model.ScheduleEntry{
		AppointmentID: "apt-1",
		Weekday:       1,
		IsWorking:     true,
		StartMinute:   start,
		EndMinute:     end,
	}
}

func TestStartMinutes_RespectsBoundaries(t *testing.T) {
	// 09:00-17:00 at 60 minutes: 09:00 .. 16:00, 8 slots.
	starts := StartMinutes(workingDay(9*60, 17*60), 60)
	if len(starts) != 8 {
		t.Fatalf("expected 8 starts, got %d", len(starts))
	}
	if starts[0] != 9*60 {
		t.Fatalf("expected first start 09:00, got %s", model.FormatClock(starts[0]))
	}
	if starts[len(starts)-1] != 16*60 {
		t.Fatalf("expected last start 16:00, got %s", model.FormatClock(starts[len(starts)-1]))
	}
}

func TestStartMinutes_NoPartialTrailingSlot(t *testing.T) {
	// 09:00-10:30 at 60 minutes: only 09:00 fits; 10:00 would end at 11:00.
	starts := StartMinutes(workingDay(9*60, 10*60+30), 60)
	if len(starts) != 1 || starts[0] != 9*60 {
		t.Fatalf("expected single 09:00 start, got %v", starts)
	}
}

func TestStartMinutes_ShortWindow(t *testing.T) {
	// Monday 09:00-10:00 at 30 minutes yields 09:00 and 09:30 only.
	starts := StartMinutes(workingDay(9*60, 10*60), 30)
	if len(starts) != 2 || starts[0] != 9*60 || starts[1] != 9*60+30 {
		t.Fatalf("expected [09:00 09:30], got %v", starts)
	}
}

func TestForDate_ClosedDayYieldsNothing(t *testing.T) {
	entry := model.ScheduleEntry{AppointmentID: "apt-1", Weekday: 0, IsWorking: false}
	windows := ForDate(testAppointment(30, 1), entry, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), nil)
	if len(windows) != 0 {
		t.Fatalf("expected no windows on a closed day, got %d", len(windows))
	}
}

func TestForDate_VirtualWindowsCarryAppointmentCapacity(t *testing.T) {
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	windows := ForDate(testAppointment(60, 3), workingDay(9*60, 12*60), date, nil)
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	for _, w := range windows {
		if w.Materialized {
			t.Fatal("expected virtual windows with no persisted slots")
		}
		if w.Ref.Kind != slotref.Virtual {
			t.Fatal("expected virtual refs")
		}
		if w.AvailableCapacity != 3 || w.TotalCapacity != 3 {
			t.Fatalf("expected capacity 3, got %d/%d", w.AvailableCapacity, w.TotalCapacity)
		}
	}
}

func TestForDate_OverlayPreservesPersistedState(t *testing.T) {
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	persisted := []model.TimeSlot{
		{
			ID:                "slot-0900",
			AppointmentID:     "apt-1",
			SlotDate:          date,
			StartMinute:       9 * 60,
			EndMinute:         10 * 60,
			TotalCapacity:     2,
			AvailableCapacity: 1,
		},
		{
			ID:                "slot-1000",
			AppointmentID:     "apt-1",
			SlotDate:          date,
			StartMinute:       10 * 60,
			EndMinute:         11 * 60,
			TotalCapacity:     2,
			AvailableCapacity: 0, // exhausted, must be hidden
		},
	}

	windows := ForDate(testAppointment(60, 2), workingDay(9*60, 12*60), date, persisted)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows (exhausted hidden), got %d", len(windows))
	}

	first := windows[0]
	if !first.Materialized || first.Ref.SlotID != "slot-0900" {
		t.Fatalf("expected persisted 09:00 slot first, got %+v", first)
	}
	if first.AvailableCapacity != 1 {
		t.Fatalf("expected persisted capacity preserved, got %d", first.AvailableCapacity)
	}

	second := windows[1]
	if second.StartMinute != 11*60 || second.Ref.Kind != slotref.Virtual {
		t.Fatalf("expected virtual 11:00 window, got %+v", second)
	}
}

func TestForDate_ChronologicalOrder(t *testing.T) {
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	windows := ForDate(testAppointment(30, 1), workingDay(9*60, 17*60), date, nil)
	for i := 1; i < len(windows); i++ {
		if windows[i].StartMinute <= windows[i-1].StartMinute {
			t.Fatalf("windows out of order at %d", i)
		}
	}
}
