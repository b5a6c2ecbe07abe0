package reports

import (
	"context"
	"errors"
	"time"
)

// Report reasons presented to users when flagging an event.
const (
	ReasonOffensiveContent = "offensive-content"
	ReasonSpam             = "spam"
	ReasonWrongDate        = "wrong-date"
	ReasonFalseInformation = "false-information"
	ReasonTermsViolation   = "terms-violation"
	ReasonOther            = "other"
)

var (
	ErrNotFound        = errors.New("report not found")
	ErrAlreadyResolved = errors.New("report is already resolved")
)

type Report struct {
	ID         string
	EventID    string
	EventULID  string
	EventTitle string
	ReporterID string
	Reason     string
	Details    string
	ResolvedAt *time.Time
	ResolvedBy *string
	CreatedAt  time.Time
}

type CreateParams struct {
	EventID    string
	ReporterID string
	Reason     string
	Details    string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Report, error)
	GetByID(ctx context.Context, id string) (*Report, error)
	ListUnresolved(ctx context.Context) ([]Report, error)
	Resolve(ctx context.Context, id string, adminID string, resolvedAt time.Time) error
}
