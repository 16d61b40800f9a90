package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openbookings/server/internal/domain/bookings"
	"github.com/openbookings/server/internal/domain/users"
)

type mockRepo struct {
	byID      map[string]*Payment
	byBooking map[string]*Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[string]*Payment{}, byBooking: map[string]*Payment{}}
}

func (m *mockRepo) Create(_ context.Context, params CreateParams) (*Payment, error) {
	if _, ok := m.byBooking[params.BookingID]; ok {
		return nil, ErrAlreadyPaid
	}
	payment := &Payment{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		BookingID:   params.BookingID,
		AmountCents: params.AmountCents,
		PhoneNumber: params.PhoneNumber,
		Status:      params.Status,
		CreatedAt:   time.Now(),
	}
	m.byID[payment.ID] = payment
	m.byBooking[payment.BookingID] = payment
	return payment, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Payment, error) {
	if payment, ok := m.byID[id]; ok {
		return payment, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByBookingID(_ context.Context, bookingID string) (*Payment, error) {
	if payment, ok := m.byBooking[bookingID]; ok {
		return payment, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]Payment, error) {
	var out []Payment
	for _, p := range m.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockBookings struct {
	byID map[string]*bookings.Booking
}

func (m *mockBookings) GetByID(_ context.Context, id string) (*bookings.Booking, error) {
	if booking, ok := m.byID[id]; ok {
		return booking, nil
	}
	return nil, bookings.ErrNotFound
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string, _ map[string]string) error {
	n.events = append(n.events, event)
	return nil
}

func newTestService() (*Service, *mockRepo, *mockBookings, *recordingNotifier) {
	repo := newMockRepo()
	bookingSource := &mockBookings{byID: map[string]*bookings.Booking{}}
	notifier := &recordingNotifier{}
	return NewService(repo, bookingSource, notifier), repo, bookingSource, notifier
}

func addBooking(src *mockBookings, userID string, status bookings.Status) *bookings.Booking {
	booking := &bookings.Booking{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: status,
	}
	src.byID[booking.ID] = booking
	return booking
}

func TestProcessPayment(t *testing.T) {
	svc, _, src, notifier := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	payment, err := svc.Process(context.Background(), "user-1", CreateParams{
		BookingID:   booking.ID,
		AmountCents: 2500,
		PhoneNumber: "+351900000000",
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, payment.Status)
	require.Equal(t, booking.ID, payment.BookingID)
	require.Equal(t, []string{"payment.completed"}, notifier.events)
}

func TestProcessPaymentTwice(t *testing.T) {
	svc, _, src, notifier := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	_, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.ErrorIs(t, err, ErrAlreadyPaid)
	require.Equal(t, []string{"payment.completed", "payment.failed"}, notifier.events)
}

func TestProcessPaymentForeignBooking(t *testing.T) {
	svc, _, src, _ := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	_, err := svc.Process(context.Background(), "user-2", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestProcessPaymentCancelledBooking(t *testing.T) {
	svc, _, src, _ := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusCancelled)

	_, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.ErrorIs(t, err, ErrNotConfirmed)
}

func TestProcessPaymentUnknownBooking(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: uuid.NewString(), AmountCents: 2500})
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestProcessPaymentInvalidAmount(t *testing.T) {
	svc, _, src, _ := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	_, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 0})
	require.Error(t, err)
}

func TestGetReceipt(t *testing.T) {
	svc, _, src, _ := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	payment, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.NoError(t, err)

	receipt, err := svc.GetReceipt(context.Background(), "user-1", payment.ID)
	require.NoError(t, err)
	require.Equal(t, "rcpt-"+payment.ID, receipt.ReceiptID)
	require.Equal(t, int64(2500), receipt.AmountCents)

	_, err = svc.GetReceipt(context.Background(), "user-2", payment.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetByBookingIDOwnership(t *testing.T) {
	svc, _, src, _ := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	payment, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.NoError(t, err)

	got, err := svc.GetByBookingID(context.Background(), "user-1", users.RoleUser, booking.ID)
	require.NoError(t, err)
	require.Equal(t, payment.ID, got.ID)

	_, err = svc.GetByBookingID(context.Background(), "user-2", users.RoleUser, booking.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetByBookingID(context.Background(), "user-2", users.RoleAdmin, booking.ID)
	require.NoError(t, err)
}

func TestPaymentStatusForBookingFallback(t *testing.T) {
	svc, _, src, _ := newTestService()
	booking := addBooking(src, "user-1", bookings.StatusConfirmed)

	// No payment yet: the status falls back to the booking id.
	status, err := svc.PaymentStatusForBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Equal(t, booking.ID, status.BookingID)
	require.Empty(t, status.PaymentID)
	require.Equal(t, "unpaid", status.Status)

	payment, err := svc.Process(context.Background(), "user-1", CreateParams{BookingID: booking.ID, AmountCents: 2500})
	require.NoError(t, err)

	status, err = svc.PaymentStatusForBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Equal(t, payment.ID, status.PaymentID)
	require.Equal(t, "completed", status.Status)
}
