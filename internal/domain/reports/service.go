package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
	"github.com/AlessiaSanfi/EventHub-Project/internal/realtime"
)

// AdminNotifier fans a notification out to every connected admin.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, n realtime.Notification) (bool, error)
}

type FileInput struct {
	Reason  string `validate:"required,oneof=offensive-content spam wrong-date false-information terms-violation other"`
	Details string `validate:"max=2000"`
}

type Service struct {
	repo     Repository
	events   events.Repository
	notifier AdminNotifier
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, eventsRepo events.Repository, notifier AdminNotifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		events:   eventsRepo,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "reports").Logger(),
	}
}

// File records a report against an event and alerts connected admins.
func (s *Service) File(ctx context.Context, eventULID, reporterID string, input FileInput) (*Report, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	event, err := s.events.GetByULID(ctx, eventULID)
	if err != nil {
		return nil, err
	}

	report, err := s.repo.Create(ctx, CreateParams{
		EventID:    event.ID,
		ReporterID: reporterID,
		Reason:     input.Reason,
		Details:    input.Details,
	})
	if err != nil {
		return nil, err
	}

	delivered, err := s.notifier.NotifyAdmins(ctx, realtime.Notification{
		Type:     realtime.NotificationReportFiled,
		Message:  fmt.Sprintf("%s was reported for %s", event.Title, input.Reason),
		EventID:  event.ULID,
		ReportID: report.ID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", report.ID).Msg("admin notification failed")
	} else if !delivered {
		s.logger.Debug().Str("report_id", report.ID).Msg("no admins connected for report notification")
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Str("event_id", event.ULID).
		Str("reason", input.Reason).
		Msg("report filed")
	return report, nil
}

func (s *Service) ListUnresolved(ctx context.Context) ([]Report, error) {
	return s.repo.ListUnresolved(ctx)
}

// Resolve marks a report handled by the given admin. Resolving twice is
// a conflict, not a no-op, so concurrent moderators notice the clash.
func (s *Service) Resolve(ctx context.Context, id, adminID string) (*Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.ResolvedAt != nil {
		return nil, ErrAlreadyResolved
	}

	now := time.Now().UTC()
	if err := s.repo.Resolve(ctx, id, adminID, now); err != nil {
		return nil, err
	}
	report.ResolvedAt = &now
	report.ResolvedBy = &adminID

	s.logger.Info().Str("report_id", id).Str("admin_id", adminID).Msg("report resolved")
	return report, nil
}
