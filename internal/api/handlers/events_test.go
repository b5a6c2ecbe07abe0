package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/middleware"
	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/reports"
	"github.com/AlessiaSanfi/EventHub-Project/internal/realtime"
)

type stubEventsRepo struct {
	events.Repository

	createFn    func(ulid string, params events.CreateParams) (*events.Event, error)
	getByULIDFn func(ulid string) (*events.Event, error)
	listFn      func(filters events.Filters, page events.Page) (*events.ListResult, error)
	updateFn    func(id string, params events.UpdateParams) (*events.Event, error)
	deleteFn    func(id string) error
	attendFn    func(eventID, userID string) error
	unattendFn  func(eventID, userID string) error
	attendeesFn func(eventID string) ([]events.Attendee, error)

	listByCreatorFn func(creatorID string) ([]events.Event, error)
	listAttendingFn func(userID string) ([]events.Event, error)
}

func (s stubEventsRepo) Create(_ context.Context, ulid string, params events.CreateParams) (*events.Event, error) {
	return s.createFn(ulid, params)
}

func (s stubEventsRepo) GetByULID(_ context.Context, ulid string) (*events.Event, error) {
	return s.getByULIDFn(ulid)
}

func (s stubEventsRepo) List(_ context.Context, filters events.Filters, page events.Page) (*events.ListResult, error) {
	return s.listFn(filters, page)
}

func (s stubEventsRepo) Update(_ context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	return s.updateFn(id, params)
}

func (s stubEventsRepo) Delete(_ context.Context, id string) error {
	return s.deleteFn(id)
}

func (s stubEventsRepo) Attend(_ context.Context, eventID, userID string) error {
	return s.attendFn(eventID, userID)
}

func (s stubEventsRepo) Unattend(_ context.Context, eventID, userID string) error {
	return s.unattendFn(eventID, userID)
}

func (s stubEventsRepo) Attendees(_ context.Context, eventID string) ([]events.Attendee, error) {
	return s.attendeesFn(eventID)
}

func (s stubEventsRepo) ListByCreator(_ context.Context, creatorID string) ([]events.Event, error) {
	return s.listByCreatorFn(creatorID)
}

func (s stubEventsRepo) ListAttending(_ context.Context, userID string) ([]events.Event, error) {
	return s.listAttendingFn(userID)
}

type noopNotifier struct{}

func (noopNotifier) NotifyUser(_ string, _ realtime.Notification) (bool, error) { return true, nil }

type stubReportsRepo struct {
	reports.Repository

	createFn         func(params reports.CreateParams) (*reports.Report, error)
	getByIDFn        func(id string) (*reports.Report, error)
	listUnresolvedFn func() ([]reports.Report, error)
	resolveFn        func(id, adminID string, resolvedAt time.Time) error
}

func (s stubReportsRepo) Create(_ context.Context, params reports.CreateParams) (*reports.Report, error) {
	return s.createFn(params)
}

func (s stubReportsRepo) GetByID(_ context.Context, id string) (*reports.Report, error) {
	return s.getByIDFn(id)
}

func (s stubReportsRepo) ListUnresolved(_ context.Context) ([]reports.Report, error) {
	return s.listUnresolvedFn()
}

func (s stubReportsRepo) Resolve(_ context.Context, id, adminID string, resolvedAt time.Time) error {
	return s.resolveFn(id, adminID, resolvedAt)
}

type noopAdminNotifier struct{}

func (noopAdminNotifier) NotifyAdmins(_ context.Context, _ realtime.Notification) (bool, error) {
	return true, nil
}

func newEventsHandler(repo stubEventsRepo, reportsRepo stubReportsRepo) *EventsHandler {
	eventsService := events.NewService(repo, noopNotifier{}, zerolog.Nop())
	reportsService := reports.NewService(reportsRepo, repo, noopAdminNotifier{}, zerolog.Nop())
	return NewEventsHandler(eventsService, reportsService, "test")
}

func authedRequest(r *http.Request, userID, role, username string) *http.Request {
	claims := &auth.Claims{Role: role, Username: username}
	claims.Subject = userID
	return r.WithContext(middleware.ContextWithClaims(r.Context(), claims))
}

func sampleEvent(ulid string) *events.Event {
	starts := time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC)
	return &events.Event{
		ID:        "e-" + ulid,
		ULID:      ulid,
		CreatorID: "u1",
		Title:     "Jazz Night",
		Category:  events.CategoryMusic,
		Location:  "Blue Note",
		StartsAt:  starts,
		Capacity:  50,
	}
}

func TestEventsHandlerListEncodesNextCursor(t *testing.T) {
	repo := stubEventsRepo{
		listFn: func(filters events.Filters, page events.Page) (*events.ListResult, error) {
			require.Equal(t, "music", filters.Category)
			require.Equal(t, 2, page.Limit)
			return &events.ListResult{
				Events:  []events.Event{*sampleEvent("01HYXA0000000000000000001"), *sampleEvent("01HYXA0000000000000000002")},
				HasMore: true,
			}, nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=2&category=music", nil)
	res := httptest.NewRecorder()

	h.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload eventListResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Len(t, payload.Items, 2)
	require.NotEmpty(t, payload.NextCursor)
	require.Equal(t, "01HYXA0000000000000000001", payload.Items[0].ID)
}

func TestEventsHandlerListLastPageOmitsCursor(t *testing.T) {
	repo := stubEventsRepo{
		listFn: func(_ events.Filters, _ events.Page) (*events.ListResult, error) {
			return &events.ListResult{Events: []events.Event{*sampleEvent("01HYXA0000000000000000001")}}, nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	res := httptest.NewRecorder()

	h.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload eventListResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Empty(t, payload.NextCursor)
}

func TestEventsHandlerListRejectsBadLimit(t *testing.T) {
	h := newEventsHandler(stubEventsRepo{}, stubReportsRepo{})

	for _, raw := range []string{"0", "-5", "101", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit="+raw, nil)
		res := httptest.NewRecorder()

		h.List(res, req)

		require.Equal(t, http.StatusBadRequest, res.Code, "limit=%s", raw)
	}
}

func TestEventsHandlerListRejectsBadCursor(t *testing.T) {
	h := newEventsHandler(stubEventsRepo{}, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?cursor=%21%21not-base64", nil)
	res := httptest.NewRecorder()

	h.List(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsHandlerGetNotFound(t *testing.T) {
	repo := stubEventsRepo{
		getByULIDFn: func(_ string) (*events.Event, error) {
			return nil, events.ErrNotFound
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/01HYXA0000000000000000001", nil)
	req.SetPathValue("id", "01HYXA0000000000000000001")
	res := httptest.NewRecorder()

	h.Get(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
}

func TestEventsHandlerCreateSuccess(t *testing.T) {
	repo := stubEventsRepo{
		createFn: func(ulid string, params events.CreateParams) (*events.Event, error) {
			require.NotEmpty(t, ulid)
			require.Equal(t, "u1", params.CreatorID)
			event := sampleEvent(ulid)
			event.Title = params.Title
			return event, nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	body := fmt.Sprintf(`{"title":"Jazz Night","category":"music","location":"Blue Note","starts_at":%q,"capacity":50}`,
		time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req = authedRequest(req, "u1", "user", "alice")
	res := httptest.NewRecorder()

	h.Create(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	require.True(t, strings.HasPrefix(res.Header().Get("Location"), "/api/v1/events/"))

	var payload eventResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "Jazz Night", payload.Title)
}

func TestEventsHandlerCreateRejectsUnknownCategory(t *testing.T) {
	h := newEventsHandler(stubEventsRepo{}, stubReportsRepo{})
	body := fmt.Sprintf(`{"title":"Jazz Night","category":"knitting","location":"Blue Note","starts_at":%q}`,
		time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req = authedRequest(req, "u1", "user", "alice")
	res := httptest.NewRecorder()

	h.Create(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsHandlerCreateRejectsPastStart(t *testing.T) {
	h := newEventsHandler(stubEventsRepo{}, stubReportsRepo{})
	body := fmt.Sprintf(`{"title":"Jazz Night","category":"music","location":"Blue Note","starts_at":%q,"capacity":50}`,
		time.Now().Add(-time.Hour).UTC().Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req = authedRequest(req, "u1", "user", "alice")
	res := httptest.NewRecorder()

	h.Create(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsHandlerCreateRejectsZeroCapacity(t *testing.T) {
	h := newEventsHandler(stubEventsRepo{}, stubReportsRepo{})
	body := fmt.Sprintf(`{"title":"Jazz Night","category":"music","location":"Blue Note","starts_at":%q,"capacity":0}`,
		time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req = authedRequest(req, "u1", "user", "alice")
	res := httptest.NewRecorder()

	h.Create(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestEventsHandlerListPassesLocationFilter(t *testing.T) {
	repo := stubEventsRepo{
		listFn: func(filters events.Filters, page events.Page) (*events.ListResult, error) {
			require.Equal(t, "Berlin", filters.Location)
			return &events.ListResult{}, nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?location=Berlin", nil)
	res := httptest.NewRecorder()

	h.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)
}

func TestEventsHandlerUpdateForbiddenForStranger(t *testing.T) {
	repo := stubEventsRepo{
		getByULIDFn: func(ulid string) (*events.Event, error) {
			return sampleEvent(ulid), nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	body := fmt.Sprintf(`{"title":"Hijacked","category":"music","location":"Elsewhere","starts_at":%q,"capacity":50}`,
		time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPut, "/api/v1/events/01HYXA0000000000000000001", strings.NewReader(body))
	req.SetPathValue("id", "01HYXA0000000000000000001")
	req = authedRequest(req, "u2", "user", "mallory")
	res := httptest.NewRecorder()

	h.Update(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestEventsHandlerDeleteAllowsAdmin(t *testing.T) {
	deleted := false
	repo := stubEventsRepo{
		getByULIDFn: func(ulid string) (*events.Event, error) {
			return sampleEvent(ulid), nil
		},
		deleteFn: func(_ string) error {
			deleted = true
			return nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/01HYXA0000000000000000001", nil)
	req.SetPathValue("id", "01HYXA0000000000000000001")
	req = authedRequest(req, "u9", "admin", "root")
	res := httptest.NewRecorder()

	h.Delete(res, req)

	require.Equal(t, http.StatusNoContent, res.Code)
	require.True(t, deleted)
}

func TestEventsHandlerAttendSuccess(t *testing.T) {
	repo := stubEventsRepo{
		getByULIDFn: func(ulid string) (*events.Event, error) {
			return sampleEvent(ulid), nil
		},
		attendFn: func(_, userID string) error {
			require.Equal(t, "u2", userID)
			return nil
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/01HYXA0000000000000000001/attend", nil)
	req.SetPathValue("id", "01HYXA0000000000000000001")
	req = authedRequest(req, "u2", "user", "bob")
	res := httptest.NewRecorder()

	h.Attend(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "attending", payload["status"])
}

func TestEventsHandlerAttendFullEventConflicts(t *testing.T) {
	repo := stubEventsRepo{
		getByULIDFn: func(ulid string) (*events.Event, error) {
			return sampleEvent(ulid), nil
		},
		attendFn: func(_, _ string) error {
			return events.ErrEventFull
		},
	}

	h := newEventsHandler(repo, stubReportsRepo{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/01HYXA0000000000000000001/attend", nil)
	req.SetPathValue("id", "01HYXA0000000000000000001")
	req = authedRequest(req, "u2", "user", "bob")
	res := httptest.NewRecorder()

	h.Attend(res, req)

	require.Equal(t, http.StatusConflict, res.Code)
}

func TestEventsHandlerReportSuccess(t *testing.T) {
	eventsRepo := stubEventsRepo{
		getByULIDFn: func(ulid string) (*events.Event, error) {
			return sampleEvent(ulid), nil
		},
	}
	reportsRepo := stubReportsRepo{
		createFn: func(params reports.CreateParams) (*reports.Report, error) {
			require.Equal(t, "u2", params.ReporterID)
			require.Equal(t, reports.ReasonSpam, params.Reason)
			return &reports.Report{ID: "r1", Reason: params.Reason, Details: params.Details}, nil
		},
	}

	h := newEventsHandler(eventsRepo, reportsRepo)
	body := `{"reason":"spam","details":"bot account"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/01HYXA0000000000000000001/report", strings.NewReader(body))
	req.SetPathValue("id", "01HYXA0000000000000000001")
	req = authedRequest(req, "u2", "user", "bob")
	res := httptest.NewRecorder()

	h.Report(res, req)

	require.Equal(t, http.StatusCreated, res.Code)

	var payload reportResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "r1", payload.ID)
	require.Equal(t, "01HYXA0000000000000000001", payload.EventID)
}

func TestEventsHandlerReportUnknownEvent(t *testing.T) {
	eventsRepo := stubEventsRepo{
		getByULIDFn: func(_ string) (*events.Event, error) {
			return nil, events.ErrNotFound
		},
	}

	h := newEventsHandler(eventsRepo, stubReportsRepo{})
	body := `{"reason":"spam"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/01HYXA0000000000000000001/report", strings.NewReader(body))
	req.SetPathValue("id", "01HYXA0000000000000000001")
	req = authedRequest(req, "u2", "user", "bob")
	res := httptest.NewRecorder()

	h.Report(res, req)

	require.Equal(t, http.StatusNotFound, res.Code)
}
