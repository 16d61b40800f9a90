package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/openbookings/server/internal/api/middleware"
	"github.com/openbookings/server/internal/auth"
	"github.com/openbookings/server/internal/domain/bookings"
	"github.com/openbookings/server/internal/domain/catalog"
	"github.com/openbookings/server/internal/domain/payments"
	"github.com/openbookings/server/internal/domain/users"
)

const sampleULID = "01HZXW3V5N4QRS7T9ABCDEFGH0"

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string, map[string]string) error {
	return nil
}

func authed(r *http.Request, userID, role string) *http.Request {
	claims := &auth.Claims{
		Email: userID + "@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	}
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

// users

type fakeUserRepo struct {
	byEmail map[string]*users.User
	byID    map[string]*users.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*users.User{}, byID: map[string]*users.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	if _, ok := f.byEmail[params.Email]; ok {
		return nil, users.ErrEmailTaken
	}
	user := &users.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

// catalog

type fakeEventRepo struct {
	byULID map[string]*catalog.Event
	locked map[string]bool // ULIDs whose delete should fail with ErrHasBookings
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byULID: map[string]*catalog.Event{}, locked: map[string]bool{}}
}

func (f *fakeEventRepo) Create(_ context.Context, params catalog.CreateParams) (*catalog.Event, error) {
	event := &catalog.Event{
		ID:          uuid.NewString(),
		ULID:        params.ULID,
		Title:       params.Title,
		Description: params.Description,
		Location:    params.Location,
		StartsAt:    params.StartsAt,
		Capacity:    params.Capacity,
		PriceCents:  params.PriceCents,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.byULID[event.ULID] = event
	return event, nil
}

func (f *fakeEventRepo) List(_ context.Context, _ catalog.Filters, _ catalog.Pagination) (catalog.ListResult, error) {
	result := catalog.ListResult{}
	for _, event := range f.byULID {
		result.Events = append(result.Events, *event)
	}
	return result, nil
}

func (f *fakeEventRepo) GetByULID(_ context.Context, ulid string) (*catalog.Event, error) {
	if event, ok := f.byULID[ulid]; ok {
		return event, nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeEventRepo) Update(_ context.Context, ulid string, params catalog.UpdateParams) (*catalog.Event, error) {
	event, ok := f.byULID[ulid]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	if params.Title != nil {
		event.Title = *params.Title
	}
	if params.Capacity != nil {
		event.Capacity = *params.Capacity
	}
	event.UpdatedAt = time.Now()
	return event, nil
}

func (f *fakeEventRepo) Delete(_ context.Context, ulid string) error {
	if _, ok := f.byULID[ulid]; !ok {
		return catalog.ErrNotFound
	}
	if f.locked[ulid] {
		return catalog.ErrHasBookings
	}
	delete(f.byULID, ulid)
	return nil
}

// bookings

type fakeBookingRepo struct {
	capacity map[string]int
	byID     map[string]*bookings.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{capacity: map[string]int{}, byID: map[string]*bookings.Booking{}}
}

func (f *fakeBookingRepo) confirmedSeats(eventULID string) int {
	total := 0
	for _, b := range f.byID {
		if b.EventULID == eventULID && b.Status == bookings.StatusConfirmed {
			total += b.Seats
		}
	}
	return total
}

func (f *fakeBookingRepo) Create(_ context.Context, params bookings.CreateParams) (*bookings.Booking, error) {
	capacity, ok := f.capacity[params.EventULID]
	if !ok {
		return nil, bookings.ErrEventNotFound
	}
	if f.confirmedSeats(params.EventULID)+params.Seats > capacity {
		return nil, bookings.ErrSoldOut
	}
	booking := &bookings.Booking{
		ID:        uuid.NewString(),
		UserID:    params.UserID,
		EventULID: params.EventULID,
		Seats:     params.Seats,
		Status:    bookings.StatusConfirmed,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.byID[booking.ID] = booking
	return booking, nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (*bookings.Booking, error) {
	if booking, ok := f.byID[id]; ok {
		return booking, nil
	}
	return nil, bookings.ErrNotFound
}

func (f *fakeBookingRepo) ListByUser(_ context.Context, userID string) ([]bookings.Booking, error) {
	var out []bookings.Booking
	for _, b := range f.byID {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) Cancel(_ context.Context, id string) (*bookings.Booking, error) {
	booking, ok := f.byID[id]
	if !ok {
		return nil, bookings.ErrNotFound
	}
	if booking.Status == bookings.StatusCancelled {
		return nil, bookings.ErrAlreadyCancelled
	}
	booking.Status = bookings.StatusCancelled
	return booking, nil
}

func (f *fakeBookingRepo) ExpireUnpaid(_ context.Context, cutoff time.Time) ([]bookings.Booking, error) {
	var expired []bookings.Booking
	for _, b := range f.byID {
		if b.Status == bookings.StatusConfirmed && !b.Paid && b.CreatedAt.Before(cutoff) {
			b.Status = bookings.StatusCancelled
			expired = append(expired, *b)
		}
	}
	return expired, nil
}

// payments

type fakePaymentRepo struct {
	byID      map[string]*payments.Payment
	byBooking map[string]*payments.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: map[string]*payments.Payment{}, byBooking: map[string]*payments.Payment{}}
}

func (f *fakePaymentRepo) Create(_ context.Context, params payments.CreateParams) (*payments.Payment, error) {
	if _, ok := f.byBooking[params.BookingID]; ok {
		return nil, payments.ErrAlreadyPaid
	}
	payment := &payments.Payment{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		BookingID:   params.BookingID,
		AmountCents: params.AmountCents,
		PhoneNumber: params.PhoneNumber,
		Status:      params.Status,
		CreatedAt:   time.Now(),
	}
	f.byID[payment.ID] = payment
	f.byBooking[payment.BookingID] = payment
	return payment, nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id string) (*payments.Payment, error) {
	if payment, ok := f.byID[id]; ok {
		return payment, nil
	}
	return nil, payments.ErrNotFound
}

func (f *fakePaymentRepo) GetByBookingID(_ context.Context, bookingID string) (*payments.Payment, error) {
	if payment, ok := f.byBooking[bookingID]; ok {
		return payment, nil
	}
	return nil, payments.ErrNotFound
}

func (f *fakePaymentRepo) ListByUser(_ context.Context, userID string) ([]payments.Payment, error) {
	var out []payments.Payment
	for _, p := range f.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}
