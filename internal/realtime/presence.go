package realtime

import "sync"

// PresenceEntry is one userID -> connID mapping.
type PresenceEntry struct {
	UserID string
	ConnID string
}

// PresenceRegistry maps a user identity to its active connection. At most one
// connection per user: a later Register for the same user supersedes the
// earlier one. The registry holds connection IDs only, never the connections
// themselves.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
	byConn map[string]string // connID -> userID, so Unregister avoids a scan
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register upserts the mapping for userID. Last write wins; the superseded
// connection's reverse entry is dropped so its eventual disconnect cannot
// evict the newer registration.
func (p *PresenceRegistry) Register(userID, connID string) {
	if userID == "" || connID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.byUser[userID]; ok && old != connID {
		delete(p.byConn, old)
	}
	p.byUser[userID] = connID
	p.byConn[connID] = userID
}

// Resolve returns the live connection for userID. Absence means the user is
// offline; that is steady state, not an error.
func (p *PresenceRegistry) Resolve(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.byUser[userID]
	return connID, ok
}

// Unregister removes whichever entry points at connID. No-op if none does.
// Must run on every disconnect so no dangling entry survives.
func (p *PresenceRegistry) Unregister(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[connID]
	if !ok {
		return
	}
	delete(p.byConn, connID)
	if current, ok := p.byUser[userID]; ok && current == connID {
		delete(p.byUser, userID)
	}
}

// Entries returns a snapshot of all registrations. Order is not significant.
func (p *PresenceRegistry) Entries() []PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]PresenceEntry, 0, len(p.byUser))
	for userID, connID := range p.byUser {
		entries = append(entries, PresenceEntry{UserID: userID, ConnID: connID})
	}
	return entries
}

// Len reports the number of registered users.
func (p *PresenceRegistry) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser)
}
