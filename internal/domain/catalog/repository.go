package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrHasBookings = errors.New("event has active bookings")
)

// Event is a bookable catalog entry. ULID is the public identifier; the
// UUID primary key never leaves the storage layer's joins.
type Event struct {
	ID          string    `json:"-"`
	ULID        string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateParams struct {
	ULID        string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	Capacity    int
	PriceCents  int64
}

type UpdateParams struct {
	Title       *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	Capacity    *int
	PriceCents  *int64
}

type Filters struct {
	Location string
	Query    string
	From     *time.Time
	Until    *time.Time
}

type Pagination struct {
	Limit int
	After string
}

type ListResult struct {
	Events     []Event
	NextCursor string
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Event, error)
	List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error)
	GetByULID(ctx context.Context, ulid string) (*Event, error)
	Update(ctx context.Context, ulid string, params UpdateParams) (*Event, error)
	// Delete removes an event; ErrHasBookings when confirmed bookings exist.
	Delete(ctx context.Context, ulid string) error
}
