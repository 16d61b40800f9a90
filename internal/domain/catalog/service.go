package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/domain/ids"
	"github.com/openbookings/server/internal/sanitize"
)

// Notifier enqueues catalog notification jobs.
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

func (s *Service) Create(ctx context.Context, actorID string, params CreateParams) (*Event, error) {
	ulid, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint ulid: %w", err)
	}
	params.ULID = ulid
	params.Title = sanitize.Text(params.Title)
	params.Description = sanitize.HTML(params.Description)
	params.Location = sanitize.Text(params.Location)

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "event.created", actorID, event)
	return event, nil
}

func (s *Service) List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error) {
	return s.repo.List(ctx, filters, pagination)
}

func (s *Service) GetByULID(ctx context.Context, ulid string) (*Event, error) {
	if err := ids.ValidateULID(ulid); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByULID(ctx, ids.NormalizeULID(ulid))
}

func (s *Service) Update(ctx context.Context, actorID, ulid string, params UpdateParams) (*Event, error) {
	if err := ids.ValidateULID(ulid); err != nil {
		return nil, ErrNotFound
	}
	if params.Title != nil {
		clean := sanitize.Text(*params.Title)
		params.Title = &clean
	}
	if params.Description != nil {
		clean := sanitize.HTML(*params.Description)
		params.Description = &clean
	}
	if params.Location != nil {
		clean := sanitize.Text(*params.Location)
		params.Location = &clean
	}

	event, err := s.repo.Update(ctx, ids.NormalizeULID(ulid), params)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "event.updated", actorID, event)
	return event, nil
}

func (s *Service) Delete(ctx context.Context, actorID, ulid string) error {
	if err := ids.ValidateULID(ulid); err != nil {
		return ErrNotFound
	}

	normalized := ids.NormalizeULID(ulid)
	event, err := s.repo.GetByULID(ctx, normalized)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, normalized); err != nil {
		return err
	}

	s.notify(ctx, "event.deleted", actorID, event)
	return nil
}

func (s *Service) notify(ctx context.Context, kind, actorID string, event *Event) {
	if s.notifier == nil {
		return
	}
	data := map[string]string{
		"event_id":    event.ULID,
		"event_title": event.Title,
	}
	if err := s.notifier.Notify(ctx, kind, actorID, "", data); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", kind).Msg("failed to enqueue notification")
	}
}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseFilters reads list query parameters: location, q, from, until,
// limit (1..200, default 50) and the `after` keyset cursor.
func ParseFilters(values url.Values) (Filters, Pagination, error) {
	filters := Filters{}
	pagination := Pagination{Limit: 50}

	filters.Location = strings.TrimSpace(values.Get("location"))
	filters.Query = strings.TrimSpace(values.Get("q"))

	from, err := parseTime(values, "from")
	if err != nil {
		return filters, pagination, err
	}
	filters.From = from

	until, err := parseTime(values, "until")
	if err != nil {
		return filters, pagination, err
	}
	filters.Until = until

	if filters.From != nil && filters.Until != nil && filters.Until.Before(*filters.From) {
		return filters, pagination, FilterError{Field: "until", Message: "must not be before from"}
	}

	limit, err := parseLimit(values)
	if err != nil {
		return filters, pagination, err
	}
	pagination.Limit = limit

	after := strings.TrimSpace(values.Get("after"))
	if after != "" {
		if !ids.IsULID(after) {
			return filters, pagination, FilterError{Field: "after", Message: "must be a valid cursor"}
		}
		after = ids.NormalizeULID(after)
	}
	pagination.After = after

	return filters, pagination, nil
}

func parseLimit(values url.Values) (int, error) {
	limit := 50
	rawLimit := strings.TrimSpace(values.Get("limit"))
	if rawLimit == "" {
		return limit, nil
	}
	parsed, err := strconv.Atoi(rawLimit)
	if err != nil {
		return 0, FilterError{Field: "limit", Message: "must be a number"}
	}
	if parsed < 1 || parsed > 200 {
		return 0, FilterError{Field: "limit", Message: "must be between 1 and 200"}
	}
	return parsed, nil
}

func parseTime(values url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept bare dates too.
		parsed, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, FilterError{Field: key, Message: "must be RFC 3339 or YYYY-MM-DD"}
		}
	}
	return &parsed, nil
}
