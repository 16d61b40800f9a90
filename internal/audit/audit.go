// Package audit records who did what. Entries land in Postgres for the
// retention window and are mirrored to the structured log.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Entry struct {
	ID           string            `json:"id,omitempty"`
	Action       string            `json:"action"`
	UserID       string            `json:"user_id,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Status       string            `json:"status"`
	Details      map[string]string `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	// DeleteOlderThan prunes entries past the retention window and
	// returns how many rows went away.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder persists audit entries and mirrors them to the log. A nil
// repository degrades to log-only, which tests rely on.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = StatusSuccess
	}

	logger := zerolog.Ctx(ctx)
	event := logger.Info()
	if entry.Status == StatusFailure {
		event = logger.Warn()
	}
	event.
		Str("audit_action", entry.Action).
		Str("user_id", entry.UserID).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("status", entry.Status).
		Msg("audit")

	if r.repo == nil {
		return nil
	}
	return r.repo.Insert(ctx, entry)
}

// Prune removes entries older than cutoff.
func (r *Recorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.repo == nil {
		return 0, nil
	}
	return r.repo.DeleteOlderThan(ctx, cutoff)
}
