package audit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Entry is a single audit record for an admin moderation action.
type Entry struct {
	Timestamp    time.Time
	Action       string
	AdminID      string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Status       string // "success" or "failure"
	Detail       string
}

// Logger writes structured audit records for admin operations. It
// rides on zerolog so audit lines land in the same stream as the rest
// of the logs, tagged for filtering.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.logger.Info().
		Time("timestamp", entry.Timestamp).
		Str("action", entry.Action).
		Str("admin_id", entry.AdminID).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("ip_address", entry.IPAddress).
		Str("status", entry.Status).
		Str("detail", entry.Detail).
		Msg("audit")
}

func (l *Logger) Success(r *http.Request, action, adminID, resourceType, resourceID string) {
	l.Log(Entry{
		Action:       action,
		AdminID:      adminID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    clientIP(r),
		Status:       "success",
	})
}

func (l *Logger) Failure(r *http.Request, action, adminID, resourceType, resourceID, detail string) {
	l.Log(Entry{
		Action:       action,
		AdminID:      adminID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    clientIP(r),
		Status:       "failure",
		Detail:       detail,
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
