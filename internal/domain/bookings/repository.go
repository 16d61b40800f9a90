package bookings

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("booking not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrSoldOut          = errors.New("not enough seats remaining")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrForbidden        = errors.New("booking belongs to another user")
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	EventID    string    `json:"-"`
	EventULID  string    `json:"event_id"`
	EventTitle string    `json:"event_title,omitempty"`
	Seats      int       `json:"seats"`
	Status     Status    `json:"status"`
	Paid       bool      `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateParams struct {
	UserID    string
	EventULID string
	Seats     int
}

type Repository interface {
	// Create locks the event row, checks remaining capacity against the
	// seats of confirmed bookings and inserts atomically. ErrSoldOut when
	// the request exceeds remaining seats.
	Create(ctx context.Context, params CreateParams) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	// Cancel flips status to cancelled. ErrAlreadyCancelled on repeat.
	Cancel(ctx context.Context, id string) (*Booking, error)
	// ExpireUnpaid cancels confirmed bookings without a payment created
	// before cutoff and returns them for notification fan-out.
	ExpireUnpaid(ctx context.Context, cutoff time.Time) ([]Booking, error)
}
