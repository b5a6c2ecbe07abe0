package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/problem"
	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/users"
)

type AuthHandler struct {
	Users *users.Service
	Env   string
}

func NewAuthHandler(service *users.Service, env string) *AuthHandler {
	return &AuthHandler{Users: service, Env: env}
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *users.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var params users.RegisterParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	result, err := h.Users.Register(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrUsernameTaken):
			problem.Write(w, r, http.StatusConflict, typeConflict, "Conflict", err, h.Env,
				problem.WithDetail(err.Error()))
		default:
			writeValidationProblem(w, r, err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: result.Token, User: toUserResponse(result.User)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var params users.LoginParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	result, err := h.Users.Login(r.Context(), params)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, typeUnauthorized, "Unauthorized", err, h.Env,
				problem.WithDetail("invalid email or password"))
			return
		}
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: toUserResponse(result.User)})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword always answers 202 so callers cannot probe which
// emails exist.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	if err := h.Users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, typeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var params users.ResetPasswordParams
	if err := decodeJSON(r, &params); err != nil {
		problem.Write(w, r, http.StatusBadRequest, typeValidation, "Invalid request", err, h.Env)
		return
	}

	result, err := h.Users.ResetPassword(r.Context(), params)
	if err != nil {
		if errors.Is(err, users.ErrInvalidResetToken) {
			problem.Write(w, r, http.StatusUnauthorized, typeUnauthorized, "Unauthorized", err, h.Env,
				problem.WithDetail("invalid or expired reset token"))
			return
		}
		writeValidationProblem(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: toUserResponse(result.User)})
}
