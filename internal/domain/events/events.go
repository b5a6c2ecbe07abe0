package events

import (
	"context"
	"errors"
	"time"
)

// Event categories. Stored as plain text, validated at the service edge.
const (
	CategoryMusic      = "music"
	CategorySports     = "sports"
	CategoryConference = "conference"
	CategoryCulture    = "culture"
	CategoryTechnology = "technology"
	CategoryOther      = "other"
)

var Categories = []string{
	CategoryMusic,
	CategorySports,
	CategoryConference,
	CategoryCulture,
	CategoryTechnology,
	CategoryOther,
}

var (
	ErrNotFound         = errors.New("event not found")
	ErrForbidden        = errors.New("not allowed to modify this event")
	ErrAlreadyAttending = errors.New("already attending this event")
	ErrNotAttending     = errors.New("not attending this event")
	ErrEventFull        = errors.New("event is at capacity")
	ErrStartsInPast     = errors.New("event start must be in the future")
)

type Event struct {
	ID          string
	ULID        string
	CreatorID   string
	Title       string
	Description string
	Category    string
	Location    string
	Image       string
	StartsAt    time.Time
	EndsAt      *time.Time
	Capacity    int
	Attendees   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attendee is a row from the event attendee list, joined with the
// user it refers to.
type Attendee struct {
	UserID   string
	Username string
	JoinedAt time.Time
}

type CreateParams struct {
	CreatorID   string
	Title       string
	Description string
	Category    string
	Location    string
	Image       string
	StartsAt    time.Time
	EndsAt      *time.Time
	Capacity    int
}

type UpdateParams struct {
	Title       string
	Description string
	Category    string
	Location    string
	Image       string
	StartsAt    time.Time
	EndsAt      *time.Time
	Capacity    int
}

// Filters narrows event listings. Zero values mean no filtering.
type Filters struct {
	Category string
	Location string
	Search   string
	From     time.Time
	To       time.Time
}

// Page is a decoded keyset cursor. Listing orders by (starts_at, ulid)
// and resumes strictly after the given pair.
type Page struct {
	Limit         int
	AfterStartsAt time.Time
	AfterULID     string
}

type ListResult struct {
	Events  []Event
	HasMore bool
}

type Repository interface {
	Create(ctx context.Context, ulid string, params CreateParams) (*Event, error)
	GetByULID(ctx context.Context, ulid string) (*Event, error)
	List(ctx context.Context, filters Filters, page Page) (*ListResult, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Event, error)
	Delete(ctx context.Context, id string) error
	Attend(ctx context.Context, eventID, userID string) error
	Unattend(ctx context.Context, eventID, userID string) error
	Attendees(ctx context.Context, eventID string) ([]Attendee, error)
	ListByCreator(ctx context.Context, creatorID string) ([]Event, error)
	ListAttending(ctx context.Context, userID string) ([]Event, error)
}
