package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openbookings/server/internal/domain/bookings"
)

const bookingColumns = `b.id, b.user_id, b.event_id, e.ulid, e.title, b.seats, b.status,
	EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status = 'completed'),
	b.created_at, b.updated_at`

// Create locks the event row, checks remaining capacity against confirmed
// bookings and inserts, all in one transaction.
func (r *BookingRepository) Create(ctx context.Context, params bookings.CreateParams) (*bookings.Booking, error) {
	if r.tx != nil {
		return r.createInTx(ctx, r.tx, params)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := r.createInTx(ctx, tx, params)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) createInTx(ctx context.Context, tx pgx.Tx, params bookings.CreateParams) (*bookings.Booking, error) {
	var (
		eventID  string
		capacity int
	)
	err := tx.QueryRow(ctx, `
		SELECT id, capacity FROM events WHERE ulid = $1 FOR UPDATE
	`, params.EventULID).Scan(&eventID, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bookings.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}

	var taken int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(seats), 0) FROM bookings
		WHERE event_id = $1 AND status = 'confirmed'
	`, eventID).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("sum confirmed seats: %w", err)
	}

	if taken+params.Seats > capacity {
		return nil, bookings.ErrSoldOut
	}

	var bookingID string
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, event_id, seats, status)
		VALUES ($1, $2, $3, 'confirmed')
		RETURNING id
	`, params.UserID, eventID, params.Seats).Scan(&bookingID)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	return getBooking(ctx, tx, bookingID)
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*bookings.Booking, error) {
	return getBooking(ctx, r.queryer(), id)
}

func getBooking(ctx context.Context, q queryer, id string) (*bookings.Booking, error) {
	row := q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.id = $1
	`, id)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, bookings.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]bookings.Booking, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []bookings.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

func (r *BookingRepository) Cancel(ctx context.Context, id string) (*bookings.Booking, error) {
	var status string
	err := r.queryer().QueryRow(ctx, `
		UPDATE bookings SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING status
	`, id).Scan(&status)
	if err == nil {
		return getBooking(ctx, r.queryer(), id)
	}
	if isInvalidID(err) {
		return nil, bookings.ErrNotFound
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	// Nothing updated: distinguish missing from already cancelled.
	existing, getErr := getBooking(ctx, r.queryer(), id)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Status == bookings.StatusCancelled {
		return nil, bookings.ErrAlreadyCancelled
	}
	return nil, fmt.Errorf("cancel booking %s: unexpected status %s", id, existing.Status)
}

// ExpireUnpaid cancels confirmed bookings created before cutoff that have
// no completed payment, returning the affected rows.
func (r *BookingRepository) ExpireUnpaid(ctx context.Context, cutoff time.Time) ([]bookings.Booking, error) {
	rows, err := r.queryer().Query(ctx, `
		UPDATE bookings b
		SET status = 'cancelled', updated_at = now()
		FROM events e
		WHERE e.id = b.event_id
		  AND b.status = 'confirmed'
		  AND b.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.booking_id = b.id AND p.status = 'completed'
		  )
		RETURNING b.id, b.user_id, b.event_id, e.ulid, e.title, b.seats, b.status, false, b.created_at, b.updated_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expire bookings: %w", err)
	}
	defer rows.Close()

	var out []bookings.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired booking: %w", err)
		}
		out = append(out, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired bookings: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.Row) (*bookings.Booking, error) {
	var booking bookings.Booking
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.EventULID,
		&booking.EventTitle,
		&booking.Seats,
		&booking.Status,
		&booking.Paid,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
