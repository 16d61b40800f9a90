package payments

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrAlreadyPaid     = errors.New("booking already paid")
	ErrNotConfirmed    = errors.New("booking is not confirmed")
	ErrForbidden       = errors.New("payment belongs to another user")
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Payment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	BookingID   string    `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateParams struct {
	UserID      string
	BookingID   string
	AmountCents int64
	PhoneNumber string
	Status      Status
}

type Repository interface {
	// Create inserts a payment row. A unique constraint on booking_id
	// maps to ErrAlreadyPaid.
	Create(ctx context.Context, params CreateParams) (*Payment, error)
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByBookingID(ctx context.Context, bookingID string) (*Payment, error)
	ListByUser(ctx context.Context, userID string) ([]Payment, error)
}

// Receipt is the payload served by the receipt endpoint.
type Receipt struct {
	ReceiptID   string    `json:"receipt_id"`
	PaymentID   string    `json:"payment_id"`
	BookingID   string    `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      Status    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
}
