package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/openbookings/server/internal/domain/catalog"
)

const eventColumns = `id, ulid, title, description, location, starts_at, capacity, price_cents, created_at, updated_at`

func (r *EventRepository) Create(ctx context.Context, params catalog.CreateParams) (*catalog.Event, error) {
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO events (ulid, title, description, location, starts_at, capacity, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+eventColumns+`
	`, params.ULID, params.Title, params.Description, params.Location, params.StartsAt, params.Capacity, params.PriceCents)

	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) List(ctx context.Context, filters catalog.Filters, pagination catalog.Pagination) (catalog.ListResult, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if pagination.After != "" {
		conditions = append(conditions, "ulid > "+arg(pagination.After))
	}
	if filters.Location != "" {
		conditions = append(conditions, "location ILIKE "+arg("%"+filters.Location+"%"))
	}
	if filters.Query != "" {
		placeholder := arg("%" + filters.Query + "%")
		conditions = append(conditions, "(title ILIKE "+placeholder+" OR description ILIKE "+placeholder+")")
	}
	if filters.From != nil {
		conditions = append(conditions, "starts_at >= "+arg(*filters.From))
	}
	if filters.Until != nil {
		conditions = append(conditions, "starts_at <= "+arg(*filters.Until))
	}

	query := "SELECT " + eventColumns + " FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ulid ASC LIMIT " + arg(pagination.Limit)

	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return catalog.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var result catalog.ListResult
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return catalog.ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		result.Events = append(result.Events, *event)
	}
	if err := rows.Err(); err != nil {
		return catalog.ListResult{}, fmt.Errorf("iterate events: %w", err)
	}

	if len(result.Events) == pagination.Limit {
		result.NextCursor = result.Events[len(result.Events)-1].ULID
	}
	return result, nil
}

func (r *EventRepository) GetByULID(ctx context.Context, ulid string) (*catalog.Event, error) {
	row := r.queryer().QueryRow(ctx, `
		SELECT `+eventColumns+` FROM events WHERE ulid = $1
	`, ulid)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, ulid string, params catalog.UpdateParams) (*catalog.Event, error) {
	var (
		sets []string
		args []any
	)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Title != nil {
		sets = append(sets, "title = "+arg(*params.Title))
	}
	if params.Description != nil {
		sets = append(sets, "description = "+arg(*params.Description))
	}
	if params.Location != nil {
		sets = append(sets, "location = "+arg(*params.Location))
	}
	if params.StartsAt != nil {
		sets = append(sets, "starts_at = "+arg(*params.StartsAt))
	}
	if params.Capacity != nil {
		sets = append(sets, "capacity = "+arg(*params.Capacity))
	}
	if params.PriceCents != nil {
		sets = append(sets, "price_cents = "+arg(*params.PriceCents))
	}
	if len(sets) == 0 {
		return r.GetByULID(ctx, ulid)
	}
	sets = append(sets, "updated_at = now()")

	query := "UPDATE events SET " + strings.Join(sets, ", ") +
		" WHERE ulid = " + arg(ulid) + " RETURNING " + eventColumns

	row := r.queryer().QueryRow(ctx, query, args...)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// Delete removes an event unless confirmed bookings reference it. The
// guard and the delete are one statement, so a booking being created
// concurrently (which holds the event row lock) cannot slip past it.
// Cancelled bookings do not block and are cascade-removed with the event.
func (r *EventRepository) Delete(ctx context.Context, ulid string) error {
	q := r.queryer()

	tag, err := q.Exec(ctx, `
		DELETE FROM events e
		WHERE e.ulid = $1
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.event_id = e.id AND b.status = 'confirmed'
		  )
	`, ulid)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing deleted: classify as missing or still booked.
	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE ulid = $1)`, ulid).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if exists {
		return catalog.ErrHasBookings
	}
	return catalog.ErrNotFound
}

func scanEvent(row pgx.Row) (*catalog.Event, error) {
	var event catalog.Event
	err := row.Scan(
		&event.ID,
		&event.ULID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.StartsAt,
		&event.Capacity,
		&event.PriceCents,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
