package events

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/AlessiaSanfi/EventHub-Project/internal/realtime"
)

// Notifier pushes realtime notifications to connected users. Delivery
// is best effort; an offline recipient is not an error.
type Notifier interface {
	NotifyUser(userID string, n realtime.Notification) (bool, error)
}

type CreateInput struct {
	Title       string     `validate:"required,min=3,max=100"`
	Description string     `validate:"max=1000"`
	Category    string     `validate:"required,oneof=music sports conference culture technology other"`
	Location    string     `validate:"required,max=255"`
	Image       string     `validate:"omitempty,url,max=2048"`
	StartsAt    time.Time  `validate:"required"`
	EndsAt      *time.Time `validate:"omitempty,gtfield=StartsAt"`
	Capacity    int        `validate:"required,gte=1,lte=100000"`
}

type Service struct {
	repo     Repository
	notifier Notifier
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "events").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, creatorID string, input CreateInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	if !input.StartsAt.After(time.Now().UTC()) {
		return nil, ErrStartsInPast
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
	event, err := s.repo.Create(ctx, id, CreateParams{
		CreatorID:   creatorID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		Image:       input.Image,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Capacity:    input.Capacity,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("event_id", event.ULID).Str("creator_id", creatorID).Msg("event created")
	return event, nil
}

func (s *Service) Get(ctx context.Context, eventULID string) (*Event, error) {
	return s.repo.GetByULID(ctx, eventULID)
}

func (s *Service) List(ctx context.Context, filters Filters, page Page) (*ListResult, error) {
	if page.Limit <= 0 || page.Limit > 100 {
		page.Limit = 20
	}
	return s.repo.List(ctx, filters, page)
}

// Update applies a full replacement of the mutable fields. Only the
// creator or an admin may modify an event.
func (s *Service) Update(ctx context.Context, eventULID, actorID string, isAdmin bool, input CreateInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != actorID && !isAdmin {
		return nil, ErrForbidden
	}

	return s.repo.Update(ctx, event.ID, UpdateParams{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		Image:       input.Image,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Capacity:    input.Capacity,
	})
}

func (s *Service) Delete(ctx context.Context, eventULID, actorID string, isAdmin bool) error {
	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return err
	}
	if event.CreatorID != actorID && !isAdmin {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, event.ID); err != nil {
		return err
	}
	s.logger.Info().Str("event_id", eventULID).Str("actor_id", actorID).Msg("event deleted")
	return nil
}

// Attend adds the user to the attendee list and notifies the event
// creator if they are connected.
func (s *Service) Attend(ctx context.Context, eventULID, userID, username string) error {
	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return err
	}
	if err := s.repo.Attend(ctx, event.ID, userID); err != nil {
		return err
	}

	if event.CreatorID != userID {
		delivered, err := s.notifier.NotifyUser(event.CreatorID, realtime.Notification{
			Type:    realtime.NotificationAttendanceJoined,
			Message: fmt.Sprintf("%s is attending %s", username, event.Title),
			EventID: event.ULID,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("event_id", eventULID).Msg("attendance notification failed")
		} else if !delivered {
			s.logger.Debug().Str("event_id", eventULID).Msg("event creator offline, notification skipped")
		}
	}
	return nil
}

func (s *Service) Unattend(ctx context.Context, eventULID, userID, username string) error {
	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return err
	}
	if err := s.repo.Unattend(ctx, event.ID, userID); err != nil {
		return err
	}

	if event.CreatorID != userID {
		delivered, err := s.notifier.NotifyUser(event.CreatorID, realtime.Notification{
			Type:    realtime.NotificationAttendanceLeft,
			Message: fmt.Sprintf("%s is no longer attending %s", username, event.Title),
			EventID: event.ULID,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("event_id", eventULID).Msg("attendance notification failed")
		} else if !delivered {
			s.logger.Debug().Str("event_id", eventULID).Msg("event creator offline, notification skipped")
		}
	}
	return nil
}

func (s *Service) Attendees(ctx context.Context, eventULID string) ([]Attendee, error) {
	event, err := s.repo.GetByULID(ctx, eventULID)
	if err != nil {
		return nil, err
	}
	return s.repo.Attendees(ctx, event.ID)
}

func (s *Service) ListByCreator(ctx context.Context, creatorID string) ([]Event, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}

func (s *Service) ListAttending(ctx context.Context, userID string) ([]Event, error) {
	return s.repo.ListAttending(ctx, userID)
}
