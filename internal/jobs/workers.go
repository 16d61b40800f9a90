package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/audit"
	"github.com/openbookings/server/internal/domain/users"
	"github.com/openbookings/server/internal/email"
)

// NotificationArgs carries one notification event through the queue.
// Event is one of the keys the email service knows: user.registered,
// user.login, booking.created, booking.cancelled, payment.completed,
// payment.failed and the event.* catalog kinds.
type NotificationArgs struct {
	Event  string            `json:"event"`
	UserID string            `json:"user_id,omitempty"`
	Email  string            `json:"email,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

func (NotificationArgs) Kind() string { return JobKindNotification }

// UserSource resolves a recipient address when the enqueue site only had
// a user id.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// NotificationWorker delivers the email for a notification event and
// records an audit entry. Delivery errors are returned so river retries
// with backoff.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationArgs]
	Email    *email.Service
	Users    UserSource
	Recorder *audit.Recorder
	Logger   zerolog.Logger
}

func (NotificationWorker) Kind() string { return JobKindNotification }

func (w NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	if w.Email == nil {
		return fmt.Errorf("email service not configured")
	}

	args := job.Args
	recipient := args.Email
	if recipient == "" && args.UserID != "" && w.Users != nil {
		user, err := w.Users.GetByID(ctx, args.UserID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				// User deleted since enqueue; nothing to deliver.
				w.Logger.Info().Str("user_id", args.UserID).Str("event", args.Event).
					Msg("skipping notification for missing user")
				return nil
			}
			return fmt.Errorf("resolve recipient: %w", err)
		}
		recipient = user.Email
	}
	if recipient == "" {
		return fmt.Errorf("notification %s has no recipient", args.Event)
	}

	if err := w.Email.SendNotification(ctx, recipient, args.Event, args.Data); err != nil {
		return fmt.Errorf("send %s notification: %w", args.Event, err)
	}

	if w.Recorder != nil {
		entry := audit.Entry{
			Action:       args.Event,
			UserID:       args.UserID,
			ResourceType: "notification",
			Status:       audit.StatusSuccess,
			Details:      args.Data,
		}
		if err := w.Recorder.Record(ctx, entry); err != nil {
			// The email went out; a failed audit write must not retrigger it.
			w.Logger.Warn().Err(err).Str("event", args.Event).Msg("audit write failed")
		}
	}
	return nil
}

// BookingExpiryArgs triggers the unpaid-booking sweep.
type BookingExpiryArgs struct{}

func (BookingExpiryArgs) Kind() string { return JobKindBookingExpiry }

// BookingExpirer is the slice of the booking service the sweep needs.
type BookingExpirer interface {
	ExpireUnpaid(ctx context.Context, cutoff time.Time) (int, error)
}

type BookingExpiryWorker struct {
	river.WorkerDefaults[BookingExpiryArgs]
	Bookings BookingExpirer
	TTL      time.Duration
	Recorder *audit.Recorder
	Logger   zerolog.Logger
}

func (BookingExpiryWorker) Kind() string { return JobKindBookingExpiry }

func (w BookingExpiryWorker) Work(ctx context.Context, _ *river.Job[BookingExpiryArgs]) error {
	if w.Bookings == nil {
		return fmt.Errorf("booking service not configured")
	}

	ttl := w.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	count, err := w.Bookings.ExpireUnpaid(ctx, time.Now().Add(-ttl))
	if err != nil {
		return fmt.Errorf("expire unpaid bookings: %w", err)
	}
	if count == 0 {
		return nil
	}

	w.Logger.Info().Int("count", count).Dur("ttl", ttl).Msg("expired unpaid bookings")
	if w.Recorder != nil {
		entry := audit.Entry{
			Action:       "bookings.expired",
			ResourceType: "booking",
			Status:       audit.StatusSuccess,
			Details:      map[string]string{"count": fmt.Sprintf("%d", count)},
		}
		if err := w.Recorder.Record(ctx, entry); err != nil {
			w.Logger.Warn().Err(err).Msg("audit write failed")
		}
	}
	return nil
}

// AuditRollupArgs triggers audit log retention pruning.
type AuditRollupArgs struct{}

func (AuditRollupArgs) Kind() string { return JobKindAuditRollup }

type AuditRollupWorker struct {
	river.WorkerDefaults[AuditRollupArgs]
	Recorder  *audit.Recorder
	Retention time.Duration
	Logger    zerolog.Logger
}

func (AuditRollupWorker) Kind() string { return JobKindAuditRollup }

func (w AuditRollupWorker) Work(ctx context.Context, _ *river.Job[AuditRollupArgs]) error {
	if w.Recorder == nil {
		return fmt.Errorf("audit recorder not configured")
	}

	retention := w.Retention
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	removed, err := w.Recorder.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		return fmt.Errorf("prune audit log: %w", err)
	}
	if removed > 0 {
		w.Logger.Info().Int64("removed", removed).Msg("pruned audit log")
	}
	return nil
}

// WorkerDeps bundles what the workers need.
type WorkerDeps struct {
	Email          *email.Service
	Users          UserSource
	Bookings       BookingExpirer
	Recorder       *audit.Recorder
	BookingTTL     time.Duration
	AuditRetention time.Duration
	Logger         zerolog.Logger
}

func NewWorkers(deps WorkerDeps) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[NotificationArgs](workers, NotificationWorker{
		Email:    deps.Email,
		Users:    deps.Users,
		Recorder: deps.Recorder,
		Logger:   deps.Logger,
	})
	river.AddWorker[BookingExpiryArgs](workers, BookingExpiryWorker{
		Bookings: deps.Bookings,
		TTL:      deps.BookingTTL,
		Recorder: deps.Recorder,
		Logger:   deps.Logger,
	})
	river.AddWorker[AuditRollupArgs](workers, AuditRollupWorker{
		Recorder:  deps.Recorder,
		Retention: deps.AuditRetention,
		Logger:    deps.Logger,
	})
	return workers
}
