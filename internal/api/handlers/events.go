package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openbookings/server/internal/api/problem"
	"github.com/openbookings/server/internal/domain/catalog"
	"github.com/openbookings/server/internal/domain/ids"
)

type EventsHandler struct {
	Catalog *catalog.Service
	Env     string
}

func NewEventsHandler(service *catalog.Service, env string) *EventsHandler {
	return &EventsHandler{Catalog: service, Env: env}
}

type createEventRequest struct {
	Title       string    `json:"title" validate:"required,max=300"`
	Description string    `json:"description" validate:"max=10000"`
	Location    string    `json:"location" validate:"required,max=300"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	Capacity    int       `json:"capacity" validate:"required,gt=0"`
	PriceCents  int64     `json:"price_cents" validate:"gte=0"`
}

type updateEventRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=300"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	Location    *string    `json:"location" validate:"omitempty,max=300"`
	StartsAt    *time.Time `json:"starts_at"`
	Capacity    *int       `json:"capacity" validate:"omitempty,gt=0"`
	PriceCents  *int64     `json:"price_cents" validate:"omitempty,gte=0"`
}

type eventListResponse struct {
	Items      []catalog.Event `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, pagination, err := catalog.ParseFilters(r.URL.Query())
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, "validation-error", "Invalid request", err, h.Env)
		return
	}

	result, err := h.Catalog.List(r.Context(), filters, pagination)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
		return
	}

	if result.Events == nil {
		result.Events = []catalog.Event{}
	}
	writeJSON(w, http.StatusOK, eventListResponse{Items: result.Events, NextCursor: result.NextCursor})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ulidValue, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.Catalog.GetByULID(r.Context(), ulidValue)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, "not-found", "Event not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	var req createEventRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	event, err := h.Catalog.Create(r.Context(), claims.Subject, catalog.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Event creation failed", err, h.Env)
		return
	}

	w.Header().Set("Location", "/api/v1/events/"+event.ULID)
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	ulidValue, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var req updateEventRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	event, err := h.Catalog.Update(r.Context(), claims.Subject, ulidValue, catalog.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, "not-found", "Event not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Event update failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, h.Env)
	if !ok {
		return
	}

	ulidValue, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.Catalog.Delete(r.Context(), claims.Subject, ulidValue); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, "not-found", "Event not found", err, h.Env)
		case errors.Is(err, catalog.ErrHasBookings):
			problem.Write(w, r, http.StatusConflict, "conflict", "Event has active bookings", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, "server-error", "Event deletion failed", err, h.Env)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ulidValue := strings.TrimSpace(pathParam(r, "id"))
	if ulidValue == "" {
		problem.Write(w, r, http.StatusBadRequest, "validation-error", "Invalid request",
			catalog.FilterError{Field: "id", Message: "missing"}, h.Env)
		return "", false
	}
	if err := ids.ValidateULID(ulidValue); err != nil {
		problem.Write(w, r, http.StatusNotFound, "not-found", "Event not found",
			catalog.FilterError{Field: "id", Message: "invalid identifier"}, h.Env)
		return "", false
	}
	return ids.NormalizeULID(ulidValue), true
}
