package realtime

import (
	"sync"
	"time"

	"github.com/AlessiaSanfi/EventHub-Project/internal/metrics"
	"github.com/rs/zerolog"
)

// conn is the hub's view of one live connection. *Session implements it; tests
// substitute fakes.
type conn interface {
	ID() string
	// UserID is the authenticated subject the connection was opened with.
	UserID() string
	// Enqueue hands a framed message to the connection's writer. It must not
	// block; it reports false when the message was dropped (backpressure or
	// connection already closed).
	Enqueue(event string, payload any) bool
	// Close tears the connection down. Idempotent.
	Close()
}

// Hub owns all live connections, the presence registry, and room membership.
// It is the only mutator of that state; everything else goes through its
// methods. The mutex serializes all state changes, and per-connection
// ordering is preserved by each session's read loop.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]conn
	rooms    map[string]map[string]struct{} // eventID -> set of connIDs
	presence *PresenceRegistry
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]conn),
		rooms:    make(map[string]map[string]struct{}),
		presence: NewPresenceRegistry(),
		logger:   logger.With().Str("component", "realtime").Logger(),
	}
}

// Presence exposes the registry for read-side consumers (the notifier).
func (h *Hub) Presence() *PresenceRegistry {
	return h.presence
}

// Attach adds a newly opened connection.
func (h *Hub) Attach(c conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	total := len(h.conns)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.logger.Info().Str("conn_id", c.ID()).Int("open", total).Msg("connection attached")
}

// Detach removes the connection from the conn table, every room, and the
// presence registry. Safe to call more than once; only the first call does
// work. This is the single teardown path for a disconnect.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	_, attached := h.conns[connID]
	if attached {
		delete(h.conns, connID)
		for eventID, members := range h.rooms {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, eventID)
			}
		}
		h.presence.Unregister(connID)
	}
	total := len(h.conns)
	roomCount := len(h.rooms)
	h.mu.Unlock()

	if !attached {
		return
	}

	metrics.WSConnections.Set(float64(total))
	metrics.WSRooms.Set(float64(roomCount))
	metrics.WSRegisteredUsers.Set(float64(h.presence.Len()))
	h.logger.Info().Str("conn_id", connID).Msg("connection detached")
}

// RegisterUser binds the user identity to the connection (client-initiated
// "registerUser" event). Idempotent upsert, last write wins. The check and
// the registry write happen under the hub lock so a concurrent Detach cannot
// leave a presence entry behind for a connection that is already gone.
func (h *Hub) RegisterUser(userID, connID string) {
	h.mu.Lock()
	_, attached := h.conns[connID]
	if attached {
		h.presence.Register(userID, connID)
	}
	h.mu.Unlock()
	if !attached {
		return
	}

	metrics.WSRegisteredUsers.Set(float64(h.presence.Len()))
	h.logger.Debug().Str("user_id", userID).Str("conn_id", connID).Msg("user registered")
}

// JoinRoom adds the connection to the event's chat room. Idempotent, no
// capacity limit.
func (h *Hub) JoinRoom(connID, eventID string) {
	if eventID == "" {
		return
	}
	h.mu.Lock()
	if _, attached := h.conns[connID]; attached {
		members, ok := h.rooms[eventID]
		if !ok {
			members = make(map[string]struct{})
			h.rooms[eventID] = members
		}
		members[connID] = struct{}{}
	}
	roomCount := len(h.rooms)
	h.mu.Unlock()

	metrics.WSRooms.Set(float64(roomCount))
	h.logger.Debug().Str("conn_id", connID).Str("event_id", eventID).Msg("joined room")
}

// LeaveRoom removes the connection from one room. A client switching between
// event chats calls this so membership in the previous room does not go stale.
func (h *Hub) LeaveRoom(connID, eventID string) {
	h.mu.Lock()
	if members, ok := h.rooms[eventID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, eventID)
		}
	}
	roomCount := len(h.rooms)
	h.mu.Unlock()

	metrics.WSRooms.Set(float64(roomCount))
}

// Relay delivers msg to every connection joined to the event's room,
// including the sender. Including the sender keeps the relay the single
// source of truth for what each client displays. Returns the number of
// connections the message was enqueued for.
func (h *Hub) Relay(msg ChatMessage) int {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	members := h.rooms[msg.EventID]
	targets := make([]conn, 0, len(members))
	for connID := range members {
		if c, ok := h.conns[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Enqueue(EventReceiveMessage, msg) {
			delivered++
		}
	}
	metrics.WSChatMessagesRelayed.Add(float64(delivered))
	return delivered
}

// RoomMembers returns the connection IDs currently joined to the room.
func (h *Hub) RoomMembers(eventID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[eventID]))
	for connID := range h.rooms[eventID] {
		members = append(members, connID)
	}
	return members
}

// sendToConn enqueues one message for a single connection. Reports whether
// the connection existed and accepted the message.
func (h *Hub) sendToConn(connID, event string, payload any) bool {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Enqueue(event, payload)
}

// Shutdown closes every live connection. Called once during server
// shutdown, after the HTTP listener has stopped accepting upgrades.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	targets := make([]conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Close()
	}
	h.logger.Info().Int("closed", len(targets)).Msg("hub shut down")
}

// dispatch routes one inbound client event. Unknown events are logged and
// dropped; payloads are validated by the REST layer before anything real
// happens, so the hub only guards against shape errors.
func (h *Hub) dispatch(connID string, env envelope) {
	switch env.Event {
	case eventRegisterUser:
		var p registerPayload
		if len(env.Payload) > 0 && !decodePayload(env.Payload, &p, h.logger) {
			return
		}
		h.mu.RLock()
		c, attached := h.conns[connID]
		h.mu.RUnlock()
		if !attached {
			return
		}
		// The connection was authenticated at upgrade time; a client cannot
		// register itself under a different user.
		if p.UserID != "" && p.UserID != c.UserID() {
			h.logger.Warn().Str("conn_id", connID).Str("claimed_user_id", p.UserID).Msg("register rejected, identity mismatch")
			return
		}
		h.RegisterUser(c.UserID(), connID)
	case eventJoinEventChat:
		var p roomPayload
		if !decodePayload(env.Payload, &p, h.logger) || p.EventID == "" {
			return
		}
		h.JoinRoom(connID, p.EventID)
	case eventLeaveEventChat:
		var p roomPayload
		if !decodePayload(env.Payload, &p, h.logger) || p.EventID == "" {
			return
		}
		h.LeaveRoom(connID, p.EventID)
	case eventSendMessage:
		var msg ChatMessage
		if !decodePayload(env.Payload, &msg, h.logger) || msg.EventID == "" {
			return
		}
		msg.Timestamp = time.Now().UTC()
		h.Relay(msg)
	default:
		h.logger.Warn().Str("event", env.Event).Str("conn_id", connID).Msg("unknown client event")
	}
}
