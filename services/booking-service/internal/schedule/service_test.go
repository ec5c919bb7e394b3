package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/storage/memory"
)

func seedAppointment(t *testing.T, store *memory.Store) string {
	t.Helper()
	id, err := store.CreateAppointment(context.Background(), model.Appointment{
		OrganizerID:  "org-1",
		Title:        "Review",
		DurationMins: 30,
		MaxCapacity:  1,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return id
}

func TestSetWeeklySchedule_ReplacesWholeWeek(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	apptID := seedAppointment(t, store)
	ctx := context.Background()

	err := svc.SetWeeklySchedule(ctx, "org-1", apptID, []model.ScheduleEntry{
		{Weekday: 1, IsWorking: true, StartMinute: 9 * 60, EndMinute: 17 * 60},
		{Weekday: 2, IsWorking: true, StartMinute: 10 * 60, EndMinute: 14 * 60},
	})
	if err != nil {
		t.Fatalf("SetWeeklySchedule failed: %v", err)
	}

	// Replace: Tuesday is gone, Wednesday appears.
	err = svc.SetWeeklySchedule(ctx, "org-1", apptID, []model.ScheduleEntry{
		{Weekday: 1, IsWorking: true, StartMinute: 9 * 60, EndMinute: 12 * 60},
		{Weekday: 3, IsWorking: true, StartMinute: 13 * 60, EndMinute: 17 * 60},
	})
	if err != nil {
		t.Fatalf("second SetWeeklySchedule failed: %v", err)
	}

	stored, err := store.ListWeek(ctx, apptID)
	if err != nil {
		t.Fatalf("ListWeek failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored entries, got %d", len(stored))
	}
	for _, e := range stored {
		if e.Weekday == 2 {
			t.Fatal("stale Tuesday entry survived the replace")
		}
	}
}

func TestSetWeeklySchedule_Validation(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	apptID := seedAppointment(t, store)
	ctx := context.Background()

	cases := []struct {
		name    string
		entries []model.ScheduleEntry
	}{
		{"weekday out of range", []model.ScheduleEntry{{Weekday: 7, IsWorking: true, StartMinute: 0, EndMinute: 60}}},
		{"duplicate weekday", []model.ScheduleEntry{
			{Weekday: 1, IsWorking: true, StartMinute: 0, EndMinute: 60},
			{Weekday: 1, IsWorking: true, StartMinute: 120, EndMinute: 180},
		}},
		{"start after end", []model.ScheduleEntry{{Weekday: 1, IsWorking: true, StartMinute: 600, EndMinute: 540}}},
		{"end past midnight", []model.ScheduleEntry{{Weekday: 1, IsWorking: true, StartMinute: 0, EndMinute: 25 * 60}}},
	}
	for _, tc := range cases {
		if err := svc.SetWeeklySchedule(ctx, "org-1", apptID, tc.entries); !errors.Is(err, model.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestSetWeeklySchedule_NormalizesClosedDays(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	apptID := seedAppointment(t, store)
	ctx := context.Background()

	err := svc.SetWeeklySchedule(ctx, "org-1", apptID, []model.ScheduleEntry{
		{Weekday: 0, IsWorking: false, StartMinute: 9 * 60, EndMinute: 17 * 60},
	})
	if err != nil {
		t.Fatalf("SetWeeklySchedule failed: %v", err)
	}
	stored, _ := store.ListWeek(ctx, apptID)
	if len(stored) != 1 || stored[0].StartMinute != 0 || stored[0].EndMinute != 0 {
		t.Fatalf("closed day not normalized: %+v", stored)
	}
}

func TestSetWeeklySchedule_OwnershipGuard(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	apptID := seedAppointment(t, store)

	err := svc.SetWeeklySchedule(context.Background(), "org-2", apptID, nil)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign organizer, got %v", err)
	}
}

func TestWeekForEdit_FillsClosedDays(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store)
	apptID := seedAppointment(t, store)
	ctx := context.Background()

	err := svc.SetWeeklySchedule(ctx, "org-1", apptID, []model.ScheduleEntry{
		{Weekday: 5, IsWorking: true, StartMinute: 9 * 60, EndMinute: 12 * 60},
	})
	if err != nil {
		t.Fatalf("SetWeeklySchedule failed: %v", err)
	}

	week, err := svc.WeekForEdit(ctx, "org-1", apptID)
	if err != nil {
		t.Fatalf("WeekForEdit failed: %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(week))
	}
	for wd, e := range week {
		if e.Weekday != wd {
			t.Fatalf("entry %d has weekday %d", wd, e.Weekday)
		}
		if wd == 5 {
			if !e.IsWorking || e.StartMinute != 9*60 {
				t.Fatalf("Friday entry wrong: %+v", e)
			}
		} else if e.IsWorking {
			t.Fatalf("weekday %d should be closed", wd)
		}
	}
}
