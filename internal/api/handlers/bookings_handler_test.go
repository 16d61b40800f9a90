package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openbookings/server/internal/domain/bookings"
	"github.com/openbookings/server/internal/domain/payments"
	"github.com/openbookings/server/internal/domain/users"
)

func newBookingsHandler(capacity int) (*BookingsHandler, *fakeBookingRepo, *fakePaymentRepo) {
	bookingRepo := newFakeBookingRepo()
	bookingRepo.capacity[sampleULID] = capacity
	paymentRepo := newFakePaymentRepo()

	bookingService := bookings.NewService(bookingRepo, noopNotifier{})
	paymentService := payments.NewService(paymentRepo, bookingRepo, noopNotifier{})
	return NewBookingsHandler(bookingService, paymentService, "test"), bookingRepo, paymentRepo
}

func createTestBooking(t *testing.T, handler *BookingsHandler, userID string, seats int) bookings.Booking {
	t.Helper()
	body := fmt.Sprintf(`{"event_id":%q,"seats":%d}`, sampleULID, seats)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)), userID, users.RoleUser)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var booking bookings.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	return booking
}

func TestBookingsCreate(t *testing.T) {
	handler, _, _ := newBookingsHandler(10)

	booking := createTestBooking(t, handler, "user-1", 3)
	require.Equal(t, bookings.StatusConfirmed, booking.Status)
	require.Equal(t, 3, booking.Seats)
}

func TestBookingsCreateSoldOut(t *testing.T) {
	handler, _, _ := newBookingsHandler(3)
	createTestBooking(t, handler, "user-1", 3)

	body := `{"event_id":"` + sampleULID + `","seats":1}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)), "user-2", users.RoleUser)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingsCreateUnknownEvent(t *testing.T) {
	handler, _, _ := newBookingsHandler(10)

	body := `{"event_id":"01HZXW3V5N4QRS7T9ABCD00000","seats":1}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body)), "user-1", users.RoleUser)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingsGetOwnership(t *testing.T) {
	handler, _, _ := newBookingsHandler(10)
	booking := createTestBooking(t, handler, "user-1", 2)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+booking.ID, nil), "user-2", users.RoleUser)
	req.SetPathValue("id", booking.ID)
	rec := httptest.NewRecorder()
	handler.Get(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Admins can read any booking.
	req = authed(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+booking.ID, nil), "admin-1", users.RoleAdmin)
	req.SetPathValue("id", booking.ID)
	rec = httptest.NewRecorder()
	handler.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingsCancel(t *testing.T) {
	handler, _, _ := newBookingsHandler(10)
	booking := createTestBooking(t, handler, "user-1", 2)

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/"+booking.ID, nil), "user-1", users.RoleUser)
	req.SetPathValue("id", booking.ID)
	rec := httptest.NewRecorder()
	handler.Cancel(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cancelled bookings.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	require.Equal(t, bookings.StatusCancelled, cancelled.Status)

	req = authed(httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/"+booking.ID, nil), "user-1", users.RoleUser)
	req.SetPathValue("id", booking.ID)
	rec = httptest.NewRecorder()
	handler.Cancel(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingsList(t *testing.T) {
	handler, _, _ := newBookingsHandler(10)
	createTestBooking(t, handler, "user-1", 1)
	createTestBooking(t, handler, "user-2", 1)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil), "user-1", users.RoleUser)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp bookingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
}

func TestBookingsPaymentStatus(t *testing.T) {
	handler, _, paymentRepo := newBookingsHandler(10)
	booking := createTestBooking(t, handler, "user-1", 1)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+booking.ID+"/payment", nil), "user-1", users.RoleUser)
	req.SetPathValue("id", booking.ID)
	rec := httptest.NewRecorder()
	handler.PaymentStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status payments.BookingPaymentStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "unpaid", status.Status)

	_, err := paymentRepo.Create(t.Context(), payments.CreateParams{
		UserID: "user-1", BookingID: booking.ID, AmountCents: 1000, Status: payments.StatusCompleted,
	})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	handler.PaymentStatus(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "completed", status.Status)
}
