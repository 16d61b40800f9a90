package bookings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/domain/users"
	"github.com/openbookings/server/internal/metrics"
)

// Notifier enqueues booking notification jobs.
type Notifier interface {
	Notify(ctx context.Context, event, userID, email string, data map[string]string) error
}

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*Booking, error) {
	if params.Seats < 1 {
		return nil, fmt.Errorf("seats must be at least 1")
	}
	params.UserID = userID

	booking, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.notify(ctx, "booking.created", booking)
	return booking, nil
}

// Get returns a booking visible to the caller: the owner or an admin.
func (s *Service) Get(ctx context.Context, callerID, callerRole, id string) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID && callerRole != users.RoleAdmin {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Cancel cancels the caller's booking. Cancelled seats stop counting
// against event capacity.
func (s *Service) Cancel(ctx context.Context, callerID, callerRole, id string) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != callerID && callerRole != users.RoleAdmin {
		return nil, ErrForbidden
	}

	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "booking.cancelled", cancelled)
	return cancelled, nil
}

// ExpireUnpaid cancels confirmed bookings that stayed unpaid past cutoff
// and fans out cancellation notifications. Called by the periodic expiry
// job.
func (s *Service) ExpireUnpaid(ctx context.Context, cutoff time.Time) (int, error) {
	expired, err := s.repo.ExpireUnpaid(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.BookingsExpired.Add(float64(len(expired)))
	for i := range expired {
		s.notify(ctx, "booking.cancelled", &expired[i])
	}
	return len(expired), nil
}

func (s *Service) notify(ctx context.Context, event string, booking *Booking) {
	if s.notifier == nil {
		return
	}
	data := map[string]string{
		"booking_id":  booking.ID,
		"event_id":    booking.EventULID,
		"event_title": booking.EventTitle,
		"seats":       strconv.Itoa(booking.Seats),
	}
	if err := s.notifier.Notify(ctx, event, booking.UserID, "", data); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("failed to enqueue notification")
	}
}
