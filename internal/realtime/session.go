package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/AlessiaSanfi/EventHub-Project/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Session is one live WebSocket connection. It owns the socket and its
// buffered send channel; the hub only ever holds the connection ID. A
// session moves from open to closed exactly once, on either a clean close or
// a read/write error, and teardown always detaches it from the hub.
type Session struct {
	id           string
	userID       string
	ws           *websocket.Conn
	send         chan []byte
	hub          *Hub
	logger       zerolog.Logger
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newSession(id, userID string, ws *websocket.Conn, hub *Hub, opts sessionOptions, logger zerolog.Logger) *Session {
	return &Session{
		id:           id,
		userID:       userID,
		ws:           ws,
		send:         make(chan []byte, opts.sendBuffer),
		hub:          hub,
		logger:       logger.With().Str("conn_id", id).Str("user_id", userID).Logger(),
		writeTimeout: opts.writeTimeout,
	}
}

type sessionOptions struct {
	sendBuffer      int
	writeTimeout    time.Duration
	maxMessageBytes int64
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) UserID() string {
	return s.userID
}

// Enqueue frames and buffers one outbound message. Never blocks: a full
// buffer or a closed session drops the message. This transport has no
// acks and no retries.
func (s *Session) Enqueue(event string, payload any) bool {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("marshal payload")
		return false
	}
	frame, err := json.Marshal(envelope{Event: event, Payload: raw})
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("marshal envelope")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		metrics.WSMessagesDropped.Inc()
		s.logger.Warn().Str("event", event).Msg("send buffer full, dropping message")
		return false
	}
}

// Close marks the session closed and closes the socket. Idempotent; the
// closed flag guarantees teardown effects run once even when the read and
// write pumps fail at the same time.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()

	_ = s.ws.Close()
	s.hub.Detach(s.id)
}

func (s *Session) writePump() {
	for frame := range s.send {
		if err := s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			s.logger.Debug().Err(err).Msg("set write deadline")
			break
		}
		if err := s.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Debug().Err(err).Msg("write error")
			break
		}
	}
	s.Close()
}

func (s *Session) readPump(maxMessageBytes int64) {
	defer s.Close()

	s.ws.SetReadLimit(maxMessageBytes)
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn().Err(err).Msg("bad frame")
			continue
		}
		s.hub.dispatch(s.id, env)
	}
}

func decodePayload(raw json.RawMessage, v any, logger zerolog.Logger) bool {
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logger.Warn().Err(err).Msg("bad payload")
		return false
	}
	return true
}
