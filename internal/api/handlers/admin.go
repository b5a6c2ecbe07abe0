package handlers

import (
	"errors"
	"net/http"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/middleware"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/problem"
	"github.com/AlessiaSanfi/EventHub-Project/internal/audit"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/reports"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
)

// AdminHandler is mounted behind the admin role middleware. Every
// mutation it performs is audit logged.
type AdminHandler struct {
	Users   *users.Service
	Events  *events.Service
	Reports *reports.Service
	Audit   *audit.Logger
	Env     string
}

func NewAdminHandler(usersService *users.Service, eventsService *events.Service, reportsService *reports.Service, auditLogger *audit.Logger, env string) *AdminHandler {
	return &AdminHandler{Users: usersService, Events: eventsService, Reports: reportsService, Audit: auditLogger, Env: env}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		return
	}

	out := make([]userResponse, 0, len(list))
	for i := range list {
		out = append(out, toUserResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ToggleBlock flips a user between active and blocked.
func (h *AdminHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	targetID := r.PathValue("id")

	user, err := h.Users.ToggleBlock(r.Context(), claims.Subject, targetID)
	if err != nil {
		h.Audit.Failure(r, "user.toggle_block", claims.Subject, "user", targetID, err.Error())
		switch {
		case errors.Is(err, users.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
		case errors.Is(err, users.ErrSelfBlock), errors.Is(err, users.ErrAdminBlock):
			problem.Write(w, r, http.StatusConflict, typeConflict, "Conflict", err, h.Env,
				problem.WithDetail(err.Error()))
		default:
			problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		}
		return
	}

	h.Audit.Success(r, "user.toggle_block", claims.Subject, "user", targetID)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteEvent force-deletes any event, regardless of who created it.
// Moderation path for events that got reported; the public delete stays
// limited to the creator.
func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	eventID := r.PathValue("id")

	if err := h.Events.Delete(r.Context(), eventID, claims.Subject, true); err != nil {
		h.Audit.Failure(r, "event.force_delete", claims.Subject, "event", eventID, err.Error())
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		}
		return
	}

	h.Audit.Success(r, "event.force_delete", claims.Subject, "event", eventID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reports.ListUnresolved(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		return
	}

	out := make([]reportResponse, 0, len(list))
	for _, rep := range list {
		out = append(out, reportResponse{
			ID:         rep.ID,
			EventID:    rep.EventULID,
			EventTitle: rep.EventTitle,
			Reason:     rep.Reason,
			Details:    rep.Details,
			ResolvedAt: rep.ResolvedAt,
			CreatedAt:  rep.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	reportID := r.PathValue("id")

	report, err := h.Reports.Resolve(r.Context(), reportID, claims.Subject)
	if err != nil {
		h.Audit.Failure(r, "report.resolve", claims.Subject, "report", reportID, err.Error())
		switch {
		case errors.Is(err, reports.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
		case errors.Is(err, reports.ErrAlreadyResolved):
			problem.Write(w, r, http.StatusConflict, typeConflict, "Conflict", err, h.Env,
				problem.WithDetail(err.Error()))
		default:
			problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		}
		return
	}

	h.Audit.Success(r, "report.resolve", claims.Subject, "report", reportID)
	writeJSON(w, http.StatusOK, reportResponse{
		ID:         report.ID,
		EventID:    report.EventULID,
		EventTitle: report.EventTitle,
		Reason:     report.Reason,
		Details:    report.Details,
		ResolvedAt: report.ResolvedAt,
		CreatedAt:  report.CreatedAt,
	})
}
