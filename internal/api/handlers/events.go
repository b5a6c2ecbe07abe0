package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/middleware"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/pagination"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/problem"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/reports"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
)

type EventsHandler struct {
	Events  *events.Service
	Reports *reports.Service
	Env     string
}

func NewEventsHandler(eventsService *events.Service, reportsService *reports.Service, env string) *EventsHandler {
	return &EventsHandler{Events: eventsService, Reports: reportsService, Env: env}
}

type eventResponse struct {
	ID          string     `json:"id"`
	CreatorID   string     `json:"creator_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Image       string     `json:"image,omitempty"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Capacity    int        `json:"capacity"`
	Attendees   int        `json:"attendees"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type eventListResponse struct {
	Items      []eventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type eventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Location    string     `json:"location"`
	Image       string     `json:"image"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    int        `json:"capacity"`
}

func toEventResponse(e *events.Event) eventResponse {
	return eventResponse{
		ID:          e.ULID,
		CreatorID:   e.CreatorID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Location:    e.Location,
		Image:       e.Image,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Capacity:    e.Capacity,
		Attendees:   e.Attendees,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (r eventRequest) toInput() events.CreateInput {
	return events.CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Image:       r.Image,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		Capacity:    r.Capacity,
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := events.Filters{
		Category: strings.TrimSpace(query.Get("category")),
		Location: strings.TrimSpace(query.Get("location")),
		Search:   strings.TrimSpace(query.Get("q")),
	}
	if raw := query.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env,
				problem.WithDetail("from must be RFC 3339"))
			return
		}
		filters.From = t
	}
	if raw := query.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env,
				problem.WithDetail("to must be RFC 3339"))
			return
		}
		filters.To = t
	}

	page := events.Page{Limit: 20}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 100 {
			problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env,
				problem.WithDetail("limit must be between 1 and 100"))
			return
		}
		page.Limit = limit
	}
	if raw := query.Get("cursor"); raw != "" {
		cursor, err := pagination.DecodeEventCursor(raw)
		if err != nil {
			problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env,
				problem.WithDetail("invalid cursor"))
			return
		}
		page.AfterStartsAt = cursor.StartsAt
		page.AfterULID = cursor.ULID
	}

	result, err := h.Events.List(r.Context(), filters, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		return
	}

	resp := eventListResponse{Items: make([]eventResponse, 0, len(result.Events))}
	for i := range result.Events {
		resp.Items = append(resp.Items, toEventResponse(&result.Events[i]))
	}
	if result.HasMore && len(result.Events) > 0 {
		last := result.Events[len(result.Events)-1]
		resp.NextCursor = pagination.EventCursor{StartsAt: last.StartsAt, ULID: last.ULID}.Encode()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Events.Create(r.Context(), claims.Subject, req.toInput())
	if err != nil {
		if errors.Is(err, events.ErrStartsInPast) {
			problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env,
				problem.WithDetail(err.Error()))
			return
		}
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	w.Header().Set("Location", "/api/v1/events/"+event.ULID)
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Events.Update(r.Context(), r.PathValue("id"), claims.Subject, claims.Role == users.RoleAdmin, req.toInput())
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if err := h.Events.Delete(r.Context(), r.PathValue("id"), claims.Subject, claims.Role == users.RoleAdmin); err != nil {
		h.writeEventError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) Attend(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if err := h.Events.Attend(r.Context(), r.PathValue("id"), claims.Subject, claims.Username); err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "attending"})
}

func (h *EventsHandler) Unattend(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if err := h.Events.Unattend(r.Context(), r.PathValue("id"), claims.Subject, claims.Username); err != nil {
		h.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "not attending"})
}

type attendeeResponse struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

func (h *EventsHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	attendees, err := h.Events.Attendees(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeEventError(w, r, err)
		return
	}

	out := make([]attendeeResponse, 0, len(attendees))
	for _, a := range attendees {
		out = append(out, attendeeResponse{UserID: a.UserID, Username: a.Username, JoinedAt: a.JoinedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

type reportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

type reportResponse struct {
	ID         string     `json:"id"`
	EventID    string     `json:"event_id"`
	EventTitle string     `json:"event_title,omitempty"`
	Reason     string     `json:"reason"`
	Details    string     `json:"details,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Report files a moderation report against an event.
func (h *EventsHandler) Report(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	report, err := h.Reports.File(r.Context(), r.PathValue("id"), claims.Subject, reports.FileInput{
		Reason:  req.Reason,
		Details: req.Details,
	})
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
			return
		}
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, reportResponse{
		ID:        report.ID,
		EventID:   r.PathValue("id"),
		Reason:    report.Reason,
		Details:   report.Details,
		CreatedAt: report.CreatedAt,
	})
}

func (h *EventsHandler) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, typeForbidden, "Forbidden", err, h.Env)
	case errors.Is(err, events.ErrAlreadyAttending), errors.Is(err, events.ErrNotAttending), errors.Is(err, events.ErrEventFull):
		problem.Write(w, r, http.StatusConflict, typeConflict, "Conflict", err, h.Env,
			problem.WithDetail(err.Error()))
	case errors.As(err, new(validator.ValidationErrors)):
		writeValidationProblem(w, r, err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
	}
}
