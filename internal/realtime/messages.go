package realtime

import (
	"encoding/json"
	"time"
)

// Event names on the wire, matching what the browser client listens for.
const (
	EventNewNotification = "newNotification"
	EventReceiveMessage  = "receiveMessage"

	eventRegisterUser   = "registerUser"
	eventJoinEventChat  = "joinEventChat"
	eventLeaveEventChat = "leaveEventChat"
	eventSendMessage    = "sendMessage"
)

// Notification types.
const (
	NotificationAttendanceJoined = "attendance-joined"
	NotificationAttendanceLeft   = "attendance-left"
	NotificationReportFiled      = "report-filed"
)

// Notification is a transient value delivered to a single live connection.
// It is never persisted; an offline recipient simply misses it.
type Notification struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	EventID   string    `json:"eventId"`
	ReportID  string    `json:"reportId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessage is relayed to every member of an event chat room.
type ChatMessage struct {
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope frames every message in both directions.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type registerPayload struct {
	UserID string `json:"userId"`
}

type roomPayload struct {
	EventID string `json:"eventId"`
}
