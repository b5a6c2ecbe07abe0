package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// EventCursor encodes a timestamp + ULID for stable event ordering.
type EventCursor struct {
	StartsAt time.Time
	ULID     string
}

// Encode encodes the cursor as base64(ts_unix_nano:ULID).
func (c EventCursor) Encode() string {
	value := fmt.Sprintf("%d:%s", c.StartsAt.UTC().UnixNano(), strings.ToUpper(strings.TrimSpace(c.ULID)))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeEventCursor decodes base64(ts_unix_nano:ULID) into an EventCursor.
func DecodeEventCursor(cursor string) (EventCursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return EventCursor{}, ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return EventCursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return EventCursor{}, ErrInvalidCursor
	}
	unixNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return EventCursor{}, ErrInvalidCursor
	}
	ulid := strings.ToUpper(strings.TrimSpace(parts[1]))
	if ulid == "" {
		return EventCursor{}, ErrInvalidCursor
	}
	return EventCursor{StartsAt: time.Unix(0, unixNano).UTC(), ULID: ulid}, nil
}
