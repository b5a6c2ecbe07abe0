package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/reports"
)

const reportColumns = `
r.id, r.event_id, e.ulid, e.title, r.reporter_id, r.reason, r.details,
r.resolved_at, r.resolved_by, r.created_at`

func (r *ReportRepository) Create(ctx context.Context, params reports.CreateParams) (*reports.Report, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO reports (event_id, reporter_id, reason, details)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`,
		params.EventID, params.ReporterID, params.Reason, params.Details)

	report := &reports.Report{
		EventID:    params.EventID,
		ReporterID: params.ReporterID,
		Reason:     params.Reason,
		Details:    params.Details,
	}
	if err := row.Scan(&report.ID, &report.CreatedAt); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*reports.Report, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT `+reportColumns+`
  FROM reports r
  JOIN events e ON e.id = r.event_id
 WHERE r.id = $1`, id)

	report, err := scanReport(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, reports.ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

func (r *ReportRepository) ListUnresolved(ctx context.Context) ([]reports.Report, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+reportColumns+`
  FROM reports r
  JOIN events e ON e.id = r.event_id
 WHERE r.resolved_at IS NULL
 ORDER BY r.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list unresolved reports: %w", err)
	}
	defer rows.Close()

	var out []reports.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unresolved reports: %w", err)
	}
	return out, nil
}

func (r *ReportRepository) Resolve(ctx context.Context, id string, adminID string, resolvedAt time.Time) error {
	tag, err := r.queryer().Exec(ctx, `
UPDATE reports
   SET resolved_at = $2, resolved_by = $3
 WHERE id = $1
   AND resolved_at IS NULL`, id, resolvedAt, adminID)
	if err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return reports.ErrAlreadyResolved
	}
	return nil
}

func scanReport(row pgx.Row) (*reports.Report, error) {
	var rep reports.Report
	if err := row.Scan(
		&rep.ID,
		&rep.EventID,
		&rep.EventULID,
		&rep.EventTitle,
		&rep.ReporterID,
		&rep.Reason,
		&rep.Details,
		&rep.ResolvedAt,
		&rep.ResolvedBy,
		&rep.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rep, nil
}
