package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/AlessiaSanfi/EventHub-Project/internal/domain/events"
)

const eventColumns = `
e.id, e.ulid, e.creator_id, e.title, e.description, e.category, e.location, e.image,
e.starts_at, e.ends_at, e.capacity,
(SELECT count(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendees,
e.created_at, e.updated_at`

func (r *EventRepository) Create(ctx context.Context, ulid string, params events.CreateParams) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO events (ulid, creator_id, title, description, category, location, image, starts_at, ends_at, capacity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at, updated_at`,
		ulid, params.CreatorID, params.Title, params.Description, params.Category,
		params.Location, params.Image, params.StartsAt, params.EndsAt, params.Capacity)

	event := &events.Event{
		ULID:        ulid,
		CreatorID:   params.CreatorID,
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Location:    params.Location,
		Image:       params.Image,
		StartsAt:    params.StartsAt,
		EndsAt:      params.EndsAt,
		Capacity:    params.Capacity,
	}
	if err := row.Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) GetByULID(ctx context.Context, ulid string) (*events.Event, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.ulid = $1`, ulid)
	event, err := scanEvent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters, page events.Page) (*events.ListResult, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Category != "" {
		conds = append(conds, "e.category = "+arg(filters.Category))
	}
	if filters.Location != "" {
		conds = append(conds, "e.location ILIKE "+arg("%"+filters.Location+"%"))
	}
	if filters.Search != "" {
		p := arg("%" + filters.Search + "%")
		conds = append(conds, "(e.title ILIKE "+p+" OR e.description ILIKE "+p+")")
	}
	if !filters.From.IsZero() {
		conds = append(conds, "e.starts_at >= "+arg(filters.From))
	}
	if !filters.To.IsZero() {
		conds = append(conds, "e.starts_at <= "+arg(filters.To))
	}
	if page.AfterULID != "" {
		conds = append(conds, "(e.starts_at, e.ulid) > ("+arg(page.AfterStartsAt)+", "+arg(page.AfterULID)+")")
	}

	query := `SELECT ` + eventColumns + ` FROM events e`
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	// Fetch one extra row to learn whether another page exists.
	query += "\nORDER BY e.starts_at, e.ulid\nLIMIT " + arg(page.Limit+1)

	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	result := &events.ListResult{Events: out}
	if len(out) > page.Limit {
		result.Events = out[:page.Limit]
		result.HasMore = true
	}
	return result, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	tag, err := r.queryer().Exec(ctx, `
UPDATE events
   SET title = $2, description = $3, category = $4, location = $5, image = $6,
       starts_at = $7, ends_at = $8, capacity = $9, updated_at = now()
 WHERE id = $1`,
		id, params.Title, params.Description, params.Category, params.Location,
		params.Image, params.StartsAt, params.EndsAt, params.Capacity)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, events.ErrNotFound
	}

	row := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("reload event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// Attend inserts the attendance row inside a transaction so the
// capacity check and the insert see the same attendee count.
func (r *EventRepository) Attend(ctx context.Context, eventID, userID string) error {
	run := func(ctx context.Context, q queryer) error {
		var capacity, attendees int
		row := q.QueryRow(ctx, `
SELECT e.capacity, (SELECT count(*) FROM event_attendees a WHERE a.event_id = e.id)
  FROM events e
 WHERE e.id = $1
   FOR UPDATE`, eventID)
		if err := row.Scan(&capacity, &attendees); err != nil {
			if err == pgx.ErrNoRows {
				return events.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		if attendees >= capacity {
			return events.ErrEventFull
		}

		tag, err := q.Exec(ctx, `
INSERT INTO event_attendees (event_id, user_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, eventID, userID)
		if err != nil {
			return fmt.Errorf("insert attendance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return events.ErrAlreadyAttending
		}
		return nil
	}

	if r.tx != nil {
		return run(ctx, r.tx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := run(ctx, tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *EventRepository) Unattend(ctx context.Context, eventID, userID string) error {
	tag, err := r.queryer().Exec(ctx, `
DELETE FROM event_attendees
 WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotAttending
	}
	return nil
}

func (r *EventRepository) Attendees(ctx context.Context, eventID string) ([]events.Attendee, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT a.user_id, u.username, a.joined_at
  FROM event_attendees a
  JOIN users u ON u.id = a.user_id
 WHERE a.event_id = $1
 ORDER BY a.joined_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	var out []events.Attendee
	for rows.Next() {
		var a events.Attendee
		if err := rows.Scan(&a.UserID, &a.Username, &a.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return out, nil
}

func (r *EventRepository) ListByCreator(ctx context.Context, creatorID string) ([]events.Event, error) {
	return r.listWhere(ctx, `e.creator_id = $1`, creatorID)
}

func (r *EventRepository) ListAttending(ctx context.Context, userID string) ([]events.Event, error) {
	return r.listWhere(ctx, `e.id IN (SELECT event_id FROM event_attendees WHERE user_id = $1)`, userID)
}

func (r *EventRepository) listWhere(ctx context.Context, cond string, args ...any) ([]events.Event, error) {
	rows, err := r.queryer().Query(ctx, `SELECT `+eventColumns+` FROM events e WHERE `+cond+` ORDER BY e.starts_at, e.ulid`, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	if err := row.Scan(
		&e.ID,
		&e.ULID,
		&e.CreatorID,
		&e.Title,
		&e.Description,
		&e.Category,
		&e.Location,
		&e.Image,
		&e.StartsAt,
		&e.EndsAt,
		&e.Capacity,
		&e.Attendees,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
