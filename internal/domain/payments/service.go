package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/domain/bookings"
	"github.com/openbookings/server/internal/domain/users"
	"github.com/openbookings/server/internal/metrics"
)

// BookingSource is the slice of the booking store the payment flow needs.
type BookingSource interface {
	GetByID(ctx context.Context, id string) (*bookings.Booking, error)
}

// Notifier enqueues payment notification jobs.
type Notifier interface {
	Notify(ctx context.Context, event, userID, email string, data map[string]string) error
}

type Service struct {
	repo     Repository
	bookings BookingSource
	notifier Notifier
}

func NewService(repo Repository, bookingSource BookingSource, notifier Notifier) *Service {
	return &Service{repo: repo, bookings: bookingSource, notifier: notifier}
}

// Process charges a booking. The processor is simulated: every accepted
// request settles as completed. The booking must belong to the caller,
// still be confirmed and not be paid already.
func (s *Service) Process(ctx context.Context, callerID string, params CreateParams) (*Payment, error) {
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	booking, err := s.bookings.GetByID(ctx, params.BookingID)
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != callerID {
		return nil, ErrForbidden
	}
	if booking.Status != bookings.StatusConfirmed {
		return nil, ErrNotConfirmed
	}

	params.UserID = callerID
	params.Status = StatusCompleted

	payment, err := s.repo.Create(ctx, params)
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			metrics.PaymentsProcessed.WithLabelValues("failed").Inc()
			s.notify(ctx, "payment.failed", callerID, params.BookingID, params.AmountCents)
		}
		return nil, err
	}

	metrics.PaymentsProcessed.WithLabelValues("completed").Inc()
	s.notify(ctx, "payment.completed", callerID, payment.BookingID, payment.AmountCents)
	return payment, nil
}

func (s *Service) GetByBookingID(ctx context.Context, callerID, callerRole, bookingID string) (*Payment, error) {
	payment, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != callerID && callerRole != users.RoleAdmin {
		return nil, ErrForbidden
	}
	return payment, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetReceipt builds the receipt for a payment owned by the caller.
func (s *Service) GetReceipt(ctx context.Context, callerID, paymentID string) (*Receipt, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != callerID {
		return nil, ErrForbidden
	}
	return &Receipt{
		ReceiptID:   "rcpt-" + payment.ID,
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		AmountCents: payment.AmountCents,
		Status:      payment.Status,
		IssuedAt:    payment.CreatedAt,
	}, nil
}

// PaymentStatusForBooking reports the payment linked to a booking, falling
// back to the booking id when no payment exists yet.
type BookingPaymentStatus struct {
	BookingID string `json:"booking_id"`
	PaymentID string `json:"payment_id,omitempty"`
	Status    string `json:"status"`
}

func (s *Service) PaymentStatusForBooking(ctx context.Context, bookingID string) (*BookingPaymentStatus, error) {
	payment, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &BookingPaymentStatus{BookingID: bookingID, Status: "unpaid"}, nil
		}
		return nil, err
	}
	return &BookingPaymentStatus{
		BookingID: bookingID,
		PaymentID: payment.ID,
		Status:    string(payment.Status),
	}, nil
}

func (s *Service) notify(ctx context.Context, event, userID, bookingID string, amountCents int64) {
	if s.notifier == nil {
		return
	}
	data := map[string]string{
		"booking_id":   bookingID,
		"amount_cents": strconv.FormatInt(amountCents, 10),
	}
	if err := s.notifier.Notify(ctx, event, userID, "", data); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("failed to enqueue notification")
	}
}
