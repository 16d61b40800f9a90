package handlers

import (
	"errors"
	"net/http"

	"github.com/openbookings/server/internal/api/problem"
	"github.com/openbookings/server/internal/domain/bookings"
	"github.com/openbookings/server/internal/domain/payments"
)

type BookingsHandler struct {
	Bookings *bookings.Service
	Payments *payments.Service
	Env      string
}

func NewBookingsHandler(bookingService *bookings.Service, paymentService *payments.Service, env string) *BookingsHandler {
	return &BookingsHandler{Bookings: bookingService, Payments: paymentService, Env: env}
}

type createBookingRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Seats   int    `json:"seats" validate:"required,gt=0"`
}

type bookingListResponse struct {
	Items []bookings.Booking `json:"items"`
}

func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	var req createBookingRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	booking, err := h.Bookings.Create(r.Context(), claims.Subject, bookings.CreateParams{
		UserID:    claims.Subject,
		EventULID: req.EventID,
		Seats:     req.Seats,
	})
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrEventNotFound):
			problem.Write(w, r, http.StatusNotFound, "not-found", "Event not found", err, h.Env)
		case errors.Is(err, bookings.ErrSoldOut):
			problem.Write(w, r, http.StatusConflict, "conflict", "Not enough seats available", err, h.Env)
		default:
			problem.Write(w, r, http.StatusBadRequest, "validation-error", "Booking failed", err, h.Env)
		}
		return
	}

	w.Header().Set("Location", "/api/v1/bookings/"+booking.ID)
	writeJSON(w, http.StatusCreated, booking)
}

func (h *BookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	items, err := h.Bookings.ListForUser(r.Context(), claims.Subject)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
		return
	}

	if items == nil {
		items = []bookings.Booking{}
	}
	writeJSON(w, http.StatusOK, bookingListResponse{Items: items})
}

func (h *BookingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	booking, err := h.Bookings.Get(r.Context(), claims.Subject, claims.Role, pathParam(r, "id"))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// Cancel frees the booked seats. Cancelling twice is a conflict so
// clients notice their state is stale.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	booking, err := h.Bookings.Cancel(r.Context(), claims.Subject, claims.Role, pathParam(r, "id"))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// PaymentStatus reports whether a booking has been paid. The booking
// lookup enforces ownership before the payment row is consulted.
func (h *BookingsHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	booking, err := h.Bookings.Get(r.Context(), claims.Subject, claims.Role, pathParam(r, "id"))
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	status, err := h.Payments.PaymentStatusForBooking(r.Context(), booking.ID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *BookingsHandler) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, "not-found", "Booking not found", err, h.Env)
	case errors.Is(err, bookings.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, "forbidden", "Booking belongs to another user", err, h.Env)
	case errors.Is(err, bookings.ErrAlreadyCancelled):
		problem.Write(w, r, http.StatusConflict, "conflict", "Booking already cancelled", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
	}
}
