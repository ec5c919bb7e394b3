package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/develper21/slotify/libs/auth"
	"github.com/develper21/slotify/services/booking-service/internal/model"
)

// AppointmentHandler serves organizer CRUD over appointments and their
// intake questions.
type AppointmentHandler struct {
	store  AppointmentStore
	logger *slog.Logger
}

func NewAppointmentHandler(store AppointmentStore, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{store: store, logger: logger}
}

type appointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
	Title         string `json:"title"`
	DurationMins  int    `json:"duration_minutes"`
	Location      string `json:"location"`
	MaxCapacity   int    `json:"max_capacity"`
	Active        *bool  `json:"active"`
	Published     *bool  `json:"published"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	Title         string `json:"title"`
	DurationMins  int    `json:"duration_minutes"`
	Location      string `json:"location,omitempty"`
	MaxCapacity   int    `json:"max_capacity"`
	Active        bool   `json:"active"`
	Published     bool   `json:"published"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentItem(appt model.Appointment) appointmentItem {
	return appointmentItem{
		AppointmentID: appt.ID,
		Title:         appt.Title,
		DurationMins:  appt.DurationMins,
		Location:      appt.Location,
		MaxCapacity:   appt.MaxCapacity,
		Active:        appt.Active,
		Published:     appt.Published,
		CreatedAt:     appt.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Appointments dispatches on method: POST creates, PUT updates, GET lists
// the caller's appointments.
func (h *AppointmentHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	if organizerID == "" {
		http.Error(w, "organizer identity required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.create(w, r, organizerID)
	case http.MethodPut:
		h.update(w, r, organizerID)
	case http.MethodGet:
		h.list(w, r, organizerID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) create(w http.ResponseWriter, r *http.Request, organizerID string) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}
	if req.DurationMins <= 0 || req.DurationMins > 24*60 {
		http.Error(w, "duration_minutes must be between 1 and 1440", http.StatusBadRequest)
		return
	}
	if req.MaxCapacity <= 0 {
		req.MaxCapacity = 1
	}

	appt := model.Appointment{
		OrganizerID:  organizerID,
		Title:        req.Title,
		DurationMins: req.DurationMins,
		Location:     strings.TrimSpace(req.Location),
		MaxCapacity:  req.MaxCapacity,
		Active:       true,
	}
	if req.Active != nil {
		appt.Active = *req.Active
	}
	if req.Published != nil {
		appt.Published = *req.Published
	}

	id, err := h.store.CreateAppointment(r.Context(), appt)
	if err != nil {
		h.logger.Error("appointment create failed", "organizer_id", organizerID, "err", err)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

func (h *AppointmentHandler) update(w http.ResponseWriter, r *http.Request, organizerID string) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	existing, err := h.store.GetAppointment(r.Context(), req.AppointmentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if existing.OrganizerID != organizerID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		existing.Title = title
	}
	if req.DurationMins > 0 {
		if req.DurationMins > 24*60 {
			http.Error(w, "duration_minutes must be between 1 and 1440", http.StatusBadRequest)
			return
		}
		existing.DurationMins = req.DurationMins
	}
	if req.Location != "" {
		existing.Location = strings.TrimSpace(req.Location)
	}
	if req.MaxCapacity > 0 {
		existing.MaxCapacity = req.MaxCapacity
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	if req.Published != nil {
		existing.Published = *req.Published
	}

	if err := h.store.UpdateAppointment(r.Context(), existing); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(existing))
}

func (h *AppointmentHandler) list(w http.ResponseWriter, r *http.Request, organizerID string) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.store.ListAppointmentsByOrganizer(r.Context(), organizerID, false, limit)
	if err != nil {
		h.logger.Error("appointment listing failed", "organizer_id", organizerID, "err", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toAppointmentItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

type questionRequest struct {
	AppointmentID string `json:"appointment_id"`
	Label         string `json:"label"`
	Required      bool   `json:"required"`
	Position      int    `json:"position"`
}

type questionItem struct {
	QuestionID    string `json:"question_id"`
	AppointmentID string `json:"appointment_id"`
	Label         string `json:"label"`
	Required      bool   `json:"required"`
	Position      int    `json:"position"`
}

// Questions dispatches on method: POST adds an intake question, GET lists
// an appointment's questions.
func (h *AppointmentHandler) Questions(w http.ResponseWriter, r *http.Request) {
	organizerID := strings.TrimSpace(r.Header.Get(auth.HeaderOrganizerID))
	if organizerID == "" {
		http.Error(w, "organizer identity required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.createQuestion(w, r, organizerID)
	case http.MethodGet:
		h.listQuestions(w, r, organizerID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) createQuestion(w http.ResponseWriter, r *http.Request, organizerID string) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Label = strings.TrimSpace(req.Label)
	if req.AppointmentID == "" || req.Label == "" {
		http.Error(w, "appointment_id and label required", http.StatusBadRequest)
		return
	}
	if !h.owns(r, organizerID, req.AppointmentID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	id, err := h.store.CreateQuestion(r.Context(), model.Question{
		AppointmentID: req.AppointmentID,
		Label:         req.Label,
		Required:      req.Required,
		Position:      req.Position,
	})
	if err != nil {
		h.logger.Error("question create failed", "appointment_id", req.AppointmentID, "err", err)
		http.Error(w, "failed to create question", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, questionItem{
		QuestionID:    id,
		AppointmentID: req.AppointmentID,
		Label:         req.Label,
		Required:      req.Required,
		Position:      req.Position,
	})
}

func (h *AppointmentHandler) listQuestions(w http.ResponseWriter, r *http.Request, organizerID string) {
	appointmentID := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if appointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if !h.owns(r, organizerID, appointmentID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	questions, err := h.store.ListQuestions(r.Context(), appointmentID)
	if err != nil {
		h.logger.Error("question listing failed", "appointment_id", appointmentID, "err", err)
		http.Error(w, "failed to list questions", http.StatusInternalServerError)
		return
	}
	items := make([]questionItem, 0, len(questions))
	for _, q := range questions {
		items = append(items, questionItem{
			QuestionID:    q.ID,
			AppointmentID: q.AppointmentID,
			Label:         q.Label,
			Required:      q.Required,
			Position:      q.Position,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) owns(r *http.Request, organizerID, appointmentID string) bool {
	appt, err := h.store.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		return false
	}
	return appt.OrganizerID == organizerID
}
