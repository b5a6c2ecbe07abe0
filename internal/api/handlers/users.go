package handlers

import (
	"errors"
	"net/http"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/middleware"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/problem"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
)

type UsersHandler struct {
	Users  *users.Service
	Events *events.Service
	Env    string
}

func NewUsersHandler(usersService *users.Service, eventsService *events.Service, env string) *UsersHandler {
	return &UsersHandler{Users: usersService, Events: eventsService, Env: env}
}

// Me returns the authenticated user's profile.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	user, err := h.Users.Get(r.Context(), claims.Subject)
	if err != nil {
		h.writeUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var params users.UpdateParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	user, err := h.Users.UpdateProfile(r.Context(), claims.Subject, params)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrUsernameTaken):
			problem.Write(w, r, http.StatusConflict, typeConflict, "Conflict", err, h.Env,
				problem.WithDetail(err.Error()))
		case errors.Is(err, users.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
		default:
			writeValidationProblem(w, r, err, h.Env)
		}
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// MyEvents lists events the authenticated user created.
func (h *UsersHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	list, err := h.Events.ListByCreator(r.Context(), claims.Subject)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventList(list))
}

// MyAttendance lists events the authenticated user is attending.
func (h *UsersHandler) MyAttendance(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	list, err := h.Events.ListAttending(r.Context(), claims.Subject)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventList(list))
}

func toEventList(list []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(list))
	for i := range list {
		out = append(out, toEventResponse(&list[i]))
	}
	return out
}

func (h *UsersHandler) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, users.ErrNotFound) {
		problem.Write(w, r, http.StatusNotFound, typeNotFound, "Not found", err, h.Env)
		return
	}
	problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
}
