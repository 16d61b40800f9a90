package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// Enqueuer satisfies the Notifier interfaces of the domain services by
// inserting notification jobs.
type Enqueuer struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

// NewEnqueuer builds an enqueuer. maxAttempts caps retries of
// notification jobs; zero keeps the default.
func NewEnqueuer(client *river.Client[pgx.Tx], maxAttempts int) *Enqueuer {
	return &Enqueuer{client: client, maxAttempts: maxAttempts}
}

// SetClient binds the job client after construction. The serve command
// needs this because workers depend on services that in turn notify
// through the enqueuer.
func (e *Enqueuer) SetClient(client *river.Client[pgx.Tx]) {
	e.client = client
}

// InsertOpts returns the insert options notification jobs are enqueued
// with, with the configured attempt cap applied.
func (e *Enqueuer) InsertOpts() river.InsertOpts {
	opts := InsertOptsForKind(JobKindNotification)
	if e.maxAttempts > 0 {
		opts.MaxAttempts = e.maxAttempts
	}
	return opts
}

func (e *Enqueuer) Notify(ctx context.Context, event, userID, email string, data map[string]string) error {
	if e.client == nil {
		return fmt.Errorf("job client not configured")
	}
	opts := e.InsertOpts()
	_, err := e.client.Insert(ctx, NotificationArgs{
		Event:  event,
		UserID: userID,
		Email:  email,
		Data:   data,
	}, &opts)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", event, err)
	}
	return nil
}
