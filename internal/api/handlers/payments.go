package handlers

import (
	"errors"
	"net/http"

	"github.com/openbookings/server/internal/api/problem"
	"github.com/openbookings/server/internal/domain/payments"
)

type PaymentsHandler struct {
	Payments *payments.Service
	Env      string
}

func NewPaymentsHandler(service *payments.Service, env string) *PaymentsHandler {
	return &PaymentsHandler{Payments: service, Env: env}
}

type processPaymentRequest struct {
	BookingID   string `json:"booking_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
}

type paymentListResponse struct {
	Items []payments.Payment `json:"items"`
}

func (h *PaymentsHandler) Process(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	var req processPaymentRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	payment, err := h.Payments.Process(r.Context(), claims.Subject, payments.CreateParams{
		BookingID:   req.BookingID,
		AmountCents: req.AmountCents,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrBookingNotFound):
			problem.Write(w, r, http.StatusNotFound, "not-found", "Booking not found", err, h.Env)
		case errors.Is(err, payments.ErrForbidden):
			problem.Write(w, r, http.StatusForbidden, "forbidden", "Booking belongs to another user", err, h.Env)
		case errors.Is(err, payments.ErrNotConfirmed):
			problem.Write(w, r, http.StatusConflict, "conflict", "Booking is not payable", err, h.Env)
		case errors.Is(err, payments.ErrAlreadyPaid):
			problem.Write(w, r, http.StatusConflict, "conflict", "Booking is already paid", err, h.Env)
		default:
			problem.Write(w, r, http.StatusBadRequest, "validation-error", "Payment failed", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	items, err := h.Payments.ListForUser(r.Context(), claims.Subject)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
		return
	}

	if items == nil {
		items = []payments.Payment{}
	}
	writeJSON(w, http.StatusOK, paymentListResponse{Items: items})
}

func (h *PaymentsHandler) GetByBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	payment, err := h.Payments.GetByBookingID(r.Context(), claims.Subject, claims.Role, pathParam(r, "booking_id"))
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentsHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	receipt, err := h.Payments.GetReceipt(r.Context(), claims.Subject, pathParam(r, "id"))
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

func (h *PaymentsHandler) writePaymentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payments.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, "not-found", "Payment not found", err, h.Env)
	case errors.Is(err, payments.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, "forbidden", "Payment belongs to another user", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
	}
}
