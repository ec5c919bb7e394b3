package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/develper21/slotify/libs/auth"
	"github.com/develper21/slotify/services/booking-service/internal/booking"
	"github.com/develper21/slotify/services/booking-service/internal/model"
	"github.com/develper21/slotify/services/booking-service/internal/schedule"
	"github.com/develper21/slotify/services/booking-service/internal/storage/memory"
)

type fixture struct {
	store       *memory.Store
	public      *PublicHandler
	bookings    *BookingHandler
	appts       *AppointmentHandler
	schedules   *ScheduleHandler
	apptID      string
	organizerID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bookingSvc := booking.NewService(store, logger)
	scheduleSvc := schedule.NewService(store)

	f := &fixture{
		store:       store,
		public:      NewPublicHandler(bookingSvc, store, logger),
		bookings:    NewBookingHandler(bookingSvc, store, logger),
		appts:       NewAppointmentHandler(store, logger),
		schedules:   NewScheduleHandler(scheduleSvc, logger),
		organizerID: "org-1",
	}

	ctx := context.Background()
	id, err := store.CreateAppointment(ctx, model.Appointment{
		OrganizerID:  f.organizerID,
		Title:        "Intro call",
		DurationMins: 60,
		MaxCapacity:  2,
		Active:       true,
		Published:    true,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	f.apptID = id

	// Monday 09:00-11:00.
	err = store.ReplaceWeek(ctx, id, []model.ScheduleEntry{
		{AppointmentID: id, Weekday: 1, IsWorking: true, StartMinute: 9 * 60, EndMinute: 11 * 60},
	})
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	return f
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestPublicSlots(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?appointment_id="+f.apptID+"&date=2025-01-06", nil)
	rec := httptest.NewRecorder()
	f.public.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 slots for a 2h window at 60m, got %d", len(items))
	}
	if items[0].StartTime != "09:00" || items[1].StartTime != "10:00" {
		t.Fatalf("unexpected start times: %s %s", items[0].StartTime, items[1].StartTime)
	}
	if items[0].AvailableCapacity != 2 {
		t.Fatalf("expected capacity 2 from appointment settings, got %d", items[0].AvailableCapacity)
	}
}

func TestPublicSlots_BadDate(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?appointment_id="+f.apptID+"&date=06-01-2025", nil)
	rec := httptest.NewRecorder()
	f.public.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPublicBook_FullFlow(t *testing.T) {
	f := newFixture(t)

	// List slots, then book the first one through its advertised id.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?appointment_id="+f.apptID+"&date=2025-01-06", nil)
	rec := httptest.NewRecorder()
	f.public.Slots(rec, req)
	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode slots: %v", err)
	}

	rec = postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": items[0].SlotID,
		"user_id": "cust-1",
		"seats":   1,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if resp.Status != model.BookingPending {
		t.Fatalf("expected pending booking, got %s", resp.Status)
	}

	// The slot is now real: a relisting advertises the persisted id with
	// one seat gone.
	rec = httptest.NewRecorder()
	f.public.Slots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?appointment_id="+f.apptID+"&date=2025-01-06", nil))
	var after []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode relisting: %v", err)
	}
	if after[0].SlotID != resp.SlotID {
		t.Fatalf("relisting should advertise the persisted slot id, got %s want %s", after[0].SlotID, resp.SlotID)
	}
	if after[0].AvailableCapacity != 1 {
		t.Fatalf("expected 1 seat left, got %d", after[0].AvailableCapacity)
	}
}

func TestPublicBook_ExhaustedSlotConflicts(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{"user_id": "cust", "seats": 2}
	body["slot_id"] = fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID)

	if rec := postJSON(t, f.public.Book, "/api/v1/public/book", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first booking: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec := postJSON(t, f.public.Book, "/api/v1/public/book", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for exhausted slot, got %d", rec.Code)
	}
}

func TestPublicBook_IdentityRequired(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID),
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without identity, got %d", rec.Code)
	}

	// Identity may arrive via header instead of body.
	rec = postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID),
	}, map[string]string{auth.HeaderUserID: "cust-9"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with header identity, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookingCancel_OwnershipChecked(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID),
		"user_id": "cust-1",
	}, nil)
	var created bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode booking: %v", err)
	}

	// A stranger cannot cancel.
	rec = postJSON(t, f.bookings.Cancel, "/api/v1/bookings/cancel", map[string]any{
		"booking_id": created.BookingID,
	}, map[string]string{auth.HeaderUserID: "cust-2"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign user, got %d", rec.Code)
	}

	// The owning customer can.
	rec = postJSON(t, f.bookings.Cancel, "/api/v1/bookings/cancel", map[string]any{
		"booking_id": created.BookingID,
		"reason":     "sick",
	}, map[string]string{auth.HeaderUserID: "cust-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var item bookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode cancel response: %v", err)
	}
	if item.Status != model.BookingCancelled || item.CancelledAt == "" {
		t.Fatalf("unexpected cancel response: %+v", item)
	}
}

func TestBookingConfirmAndComplete(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID),
		"user_id": "cust-1",
	}, nil)
	var created bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode booking: %v", err)
	}

	organizer := map[string]string{auth.HeaderOrganizerID: f.organizerID}

	rec = postJSON(t, f.bookings.Confirm, "/api/v1/bookings/confirm", map[string]any{
		"booking_id": created.BookingID,
	}, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Confirming again is a state conflict.
	rec = postJSON(t, f.bookings.Confirm, "/api/v1/bookings/confirm", map[string]any{
		"booking_id": created.BookingID,
	}, organizer)
	if rec.Code != http.StatusConflict {
		t.Fatalf("double confirm: expected 409, got %d", rec.Code)
	}

	rec = postJSON(t, f.bookings.Complete, "/api/v1/bookings/complete", map[string]any{
		"booking_id": created.BookingID,
	}, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookingList_RequiresOwnership(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?appointment_id="+f.apptID, nil)
	req.Header.Set(auth.HeaderOrganizerID, "org-other")
	rec := httptest.NewRecorder()
	f.bookings.List(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign organizer, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings?appointment_id="+f.apptID, nil)
	req.Header.Set(auth.HeaderOrganizerID, f.organizerID)
	rec = httptest.NewRecorder()
	f.bookings.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	f := newFixture(t)
	organizer := map[string]string{auth.HeaderOrganizerID: f.organizerID}

	raw, _ := json.Marshal(setScheduleRequest{
		AppointmentID: f.apptID,
		Entries: []scheduleEntryPayload{
			{Weekday: 2, IsWorking: true, StartTime: "10:00", EndTime: "12:00"},
		},
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/schedule", bytes.NewReader(raw))
	for k, v := range organizer {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.schedules.Schedule(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/schedule?appointment_id="+f.apptID, nil)
	req.Header.Set(auth.HeaderOrganizerID, f.organizerID)
	rec = httptest.NewRecorder()
	f.schedules.Schedule(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var week []scheduleEntryPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &week); err != nil {
		t.Fatalf("decode week: %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(week))
	}
	if !week[2].IsWorking || week[2].StartTime != "10:00" || week[2].EndTime != "12:00" {
		t.Fatalf("Tuesday row wrong: %+v", week[2])
	}
	// Monday was replaced away.
	if week[1].IsWorking {
		t.Fatal("Monday should be closed after the replace")
	}
}

func TestAppointmentCRUD(t *testing.T) {
	f := newFixture(t)
	organizer := map[string]string{auth.HeaderOrganizerID: f.organizerID}

	rec := postJSON(t, f.appts.Appointments, "/api/v1/appointments", map[string]any{
		"title":            "Deep dive",
		"duration_minutes": 45,
		"max_capacity":     3,
		"published":        true,
	}, organizer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	raw, _ := json.Marshal(map[string]any{
		"appointment_id":   created.AppointmentID,
		"duration_minutes": 30,
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/appointments", bytes.NewReader(raw))
	req.Header.Set(auth.HeaderOrganizerID, f.organizerID)
	rec = httptest.NewRecorder()
	f.appts.Appointments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set(auth.HeaderOrganizerID, f.organizerID)
	rec = httptest.NewRecorder()
	f.appts.Appointments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var items []appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(items))
	}
	for _, it := range items {
		if it.AppointmentID == created.AppointmentID && it.DurationMins != 30 {
			t.Fatalf("update not persisted: %+v", it)
		}
	}
}

func TestQuestionLifecycle(t *testing.T) {
	f := newFixture(t)
	organizer := map[string]string{auth.HeaderOrganizerID: f.organizerID}

	rec := postJSON(t, f.appts.Questions, "/api/v1/questions", map[string]any{
		"appointment_id": f.apptID,
		"label":          "Anything to prepare?",
		"required":       true,
	}, organizer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create question: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var q questionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode question: %v", err)
	}

	// Booking without the required answer is rejected.
	rec = postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID),
		"user_id": "cust-1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without required answer, got %d", rec.Code)
	}

	rec = postJSON(t, f.public.Book, "/api/v1/public/book", map[string]any{
		"slot_id": fmt.Sprintf("v:%s:2025-01-06:09:00", f.apptID),
		"user_id": "cust-1",
		"answers": []map[string]any{{"question_id": q.QuestionID, "text": "bring laptop"}},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with answer, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateSlotsEndpoint(t *testing.T) {
	f := newFixture(t)
	organizer := map[string]string{auth.HeaderOrganizerID: f.organizerID}

	rec := postJSON(t, f.bookings.GenerateSlots, "/api/v1/slots/generate", map[string]any{
		"appointment_id": f.apptID,
		"from":           "2025-01-06",
		"to":             "2025-01-12",
	}, organizer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp generateSlotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Created != 2 {
		t.Fatalf("expected 2 slots for one 2h Monday at 60m, got %d", resp.Created)
	}
	if f.store.SlotCount() != 2 {
		t.Fatalf("expected 2 slot rows, got %d", f.store.SlotCount())
	}
}
