package realtime

import (
	"errors"
	"net/http"

	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
	"github.com/AlessiaSanfi/EventHub-Project/internal/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errBlockedAccount = errors.New("account is blocked")

// Handler upgrades HTTP requests to WebSocket sessions and runs their pumps.
// The upgrade requires a valid access token, passed as a "token" query
// parameter (browser WebSocket clients cannot set headers) or as a bearer
// Authorization header.
type Handler struct {
	hub      *Hub
	jwt      *auth.JWTManager
	upgrader websocket.Upgrader
	opts     sessionOptions
	logger   zerolog.Logger
}

func NewHandler(hub *Hub, jwt *auth.JWTManager, cfg config.RealtimeConfig, corsCfg config.CORSConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		jwt: jwt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(corsCfg),
		},
		opts: sessionOptions{
			sendBuffer:      cfg.SendBuffer,
			writeTimeout:    cfg.WriteTimeout,
			maxMessageBytes: cfg.MaxMessageBytes,
		},
		logger: logger.With().Str("component", "realtime").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authenticate(r)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket auth failed")
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := newSession(uuid.New().String(), claims.Subject, ws, h.hub, h.opts, h.logger)
	h.hub.Attach(session)

	go session.writePump()
	go session.readPump(h.opts.maxMessageBytes)
}

func (h *Handler) authenticate(r *http.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		token, err = auth.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			return nil, err
		}
	}
	claims, err := h.jwt.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.Role == "blocked" {
		return nil, errBlockedAccount
	}
	return claims, nil
}

func originChecker(cfg config.CORSConfig) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if cfg.AllowAllOrigins {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range cfg.AllowedOrigins {
			if allowed == origin {
				return true
			}
		}
		return false
	}
}
