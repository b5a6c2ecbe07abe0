package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AlessiaSanfi/EventHub-Project/internal/api/handlers"
	"github.com/AlessiaSanfi/EventHub-Project/internal/api/middleware"
	"github.com/AlessiaSanfi/EventHub-Project/internal/config"
	"github.com/AlessiaSanfi/EventHub-Project/internal/metrics"
	"github.com/AlessiaSanfi/EventHub-Project/internal/realtime"
)

// Deps carries the wired services the router mounts. Everything is
// constructed in cmd/server so tests can assemble a router from stubs.
type Deps struct {
	Config    config.Config
	Logger    zerolog.Logger
	Auth      *handlers.AuthHandler
	Events    *handlers.EventsHandler
	Users     *handlers.UsersHandler
	Admin     *handlers.AdminHandler
	Healthz   http.Handler
	Readyz    http.Handler
	Websocket *realtime.Handler
	JWT       middlewareAuth
}

type middlewareAuth = func(http.Handler) http.Handler

// NewRouter assembles the HTTP surface. The websocket endpoint sits
// outside the logging and metrics wrappers because their response
// writer does not support hijacking.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	requireAdmin := middleware.RequireRole("admin", env)
	authedTier := middleware.WithRateLimitTierHandler(middleware.TierAuthed)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)

	authed := func(h http.Handler) http.Handler {
		return deps.JWT(authedTier(h))
	}
	admin := func(h http.Handler) http.Handler {
		return deps.JWT(requireAdmin(authedTier(h)))
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", deps.Healthz)
	mux.Handle("/readyz", deps.Readyz)
	mux.Handle("/metrics", metrics.Handler())

	// Auth.
	mux.Handle("POST /api/v1/auth/register", http.HandlerFunc(deps.Auth.Register))
	mux.Handle("POST /api/v1/auth/login", loginTier(http.HandlerFunc(deps.Auth.Login)))
	mux.Handle("POST /api/v1/auth/forgot-password", loginTier(http.HandlerFunc(deps.Auth.ForgotPassword)))
	mux.Handle("POST /api/v1/auth/reset-password", loginTier(http.HandlerFunc(deps.Auth.ResetPassword)))

	// Events.
	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(deps.Events.List),
		http.MethodPost: authed(http.HandlerFunc(deps.Events.Create)),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(deps.Events.Get),
		http.MethodPut:    authed(http.HandlerFunc(deps.Events.Update)),
		http.MethodDelete: authed(http.HandlerFunc(deps.Events.Delete)),
	}))
	mux.Handle("GET /api/v1/events/{id}/attendees", http.HandlerFunc(deps.Events.Attendees))
	mux.Handle("POST /api/v1/events/{id}/attend", authed(http.HandlerFunc(deps.Events.Attend)))
	mux.Handle("DELETE /api/v1/events/{id}/attend", authed(http.HandlerFunc(deps.Events.Unattend)))
	mux.Handle("POST /api/v1/events/{id}/report", authed(http.HandlerFunc(deps.Events.Report)))

	// Profile.
	mux.Handle("/api/v1/users/me", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(deps.Users.Me)),
		http.MethodPut: authed(http.HandlerFunc(deps.Users.UpdateMe)),
	}))
	mux.Handle("GET /api/v1/users/me/events", authed(http.HandlerFunc(deps.Users.MyEvents)))
	mux.Handle("GET /api/v1/users/me/attendance", authed(http.HandlerFunc(deps.Users.MyAttendance)))

	// Admin.
	mux.Handle("GET /api/v1/admin/users", admin(http.HandlerFunc(deps.Admin.ListUsers)))
	mux.Handle("POST /api/v1/admin/users/{id}/toggle-block", admin(http.HandlerFunc(deps.Admin.ToggleBlock)))
	mux.Handle("DELETE /api/v1/admin/events/{id}", admin(http.HandlerFunc(deps.Admin.DeleteEvent)))
	mux.Handle("GET /api/v1/admin/reports", admin(http.HandlerFunc(deps.Admin.ListReports)))
	mux.Handle("POST /api/v1/admin/reports/{id}/resolve", admin(http.HandlerFunc(deps.Admin.ResolveReport)))

	wrapped := middleware.SecurityHeaders(env == "production")(mux)
	wrapped = metrics.HTTPMetrics("")(wrapped)
	wrapped = middleware.RequestLogging(deps.Logger)(wrapped)
	wrapped = middleware.RateLimit(cfg.RateLimit)(wrapped)
	wrapped = middleware.CORS(cfg.CORS, deps.Logger)(wrapped)
	wrapped = middleware.CorrelationID(deps.Logger)(wrapped)

	root := http.NewServeMux()
	root.Handle("GET /ws", deps.Websocket)
	root.Handle("/", wrapped)
	return root
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
