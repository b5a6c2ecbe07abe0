package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlessiaSanfi/EventHub-Project/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrNotRunning means the notifier was invoked before the transport layer was
// wired up. That is a startup-ordering bug, not a runtime condition, so it
// surfaces loudly instead of being absorbed like an offline recipient.
var ErrNotRunning = errors.New("realtime: notifier used before hub initialized")

// AdminDirectory resolves the user IDs holding the admin role. Backed by the
// user store; resolved fresh on every broadcast rather than cached.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

// Notifier routes notifications from completed REST operations to live
// connections. Delivery is fire-and-forget: an offline recipient is reported
// via the boolean, never as an error.
type Notifier struct {
	hub    *Hub
	admins AdminDirectory
	logger zerolog.Logger
}

func NewNotifier(hub *Hub, admins AdminDirectory, logger zerolog.Logger) *Notifier {
	return &Notifier{
		hub:    hub,
		admins: admins,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// NotifyUser delivers n to userID's live connection, if any. Returns true
// only when a live connection was found; false means the recipient was
// offline and the notification is dropped. Callers must not treat false as
// an error.
func (n *Notifier) NotifyUser(userID string, notification Notification) (bool, error) {
	if n == nil || n.hub == nil {
		return false, ErrNotRunning
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now().UTC()
	}

	connID, ok := n.hub.Presence().Resolve(userID)
	if !ok {
		metrics.NotificationsDropped.Inc()
		return false, nil
	}

	delivered := n.hub.sendToConn(connID, EventNewNotification, notification)
	if delivered {
		metrics.NotificationsDelivered.Inc()
	} else {
		metrics.NotificationsDropped.Inc()
	}
	return delivered, nil
}

// NotifyAdmins best-effort delivers n to every currently connected admin.
// Admin identities are resolved per call. Returns true when the dispatch
// attempt completed, regardless of how many admins were online.
func (n *Notifier) NotifyAdmins(ctx context.Context, notification Notification) (bool, error) {
	if n == nil || n.hub == nil {
		return false, ErrNotRunning
	}

	adminIDs, err := n.admins.AdminIDs(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve admins: %w", err)
	}

	reached := 0
	for _, adminID := range adminIDs {
		delivered, err := n.NotifyUser(adminID, notification)
		if err != nil {
			return false, err
		}
		if delivered {
			reached++
		}
	}

	n.logger.Debug().
		Str("type", notification.Type).
		Int("admins", len(adminIDs)).
		Int("reached", reached).
		Msg("admin broadcast")
	return true, nil
}
