package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openbookings/server/internal/domain/bookings"
)

func TestBookingRepositoryCapacity(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	userID := insertUser(t, ctx, pool, "alice@example.com")
	_, eventULID := insertEvent(t, ctx, pool, "Jazz Night", 10)

	first, err := repo.Bookings().Create(ctx, bookings.CreateParams{
		UserID: userID, EventULID: eventULID, Seats: 8,
	})
	require.NoError(t, err)
	require.Equal(t, bookings.StatusConfirmed, first.Status)
	require.Equal(t, "Jazz Night", first.EventTitle)

	_, err = repo.Bookings().Create(ctx, bookings.CreateParams{
		UserID: userID, EventULID: eventULID, Seats: 3,
	})
	require.ErrorIs(t, err, bookings.ErrSoldOut)

	_, err = repo.Bookings().Create(ctx, bookings.CreateParams{
		UserID: userID, EventULID: eventULID, Seats: 2,
	})
	require.NoError(t, err)
}

func TestBookingRepositoryConcurrentOverbooking(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	userID := insertUser(t, ctx, pool, "alice@example.com")
	_, eventULID := insertEvent(t, ctx, pool, "Small Venue", 5)

	// 10 goroutines racing for 1 seat each against capacity 5: the row
	// lock must let exactly 5 through.
	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Bookings().Create(ctx, bookings.CreateParams{
				UserID: userID, EventULID: eventULID, Seats: 1,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, soldOut int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, bookings.ErrSoldOut)
			soldOut++
		}
	}
	require.Equal(t, 5, ok)
	require.Equal(t, 5, soldOut)
}

func TestBookingRepositoryCancel(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	userID := insertUser(t, ctx, pool, "alice@example.com")
	_, eventULID := insertEvent(t, ctx, pool, "One Seat Show", 1)

	booking, err := repo.Bookings().Create(ctx, bookings.CreateParams{
		UserID: userID, EventULID: eventULID, Seats: 1,
	})
	require.NoError(t, err)

	cancelled, err := repo.Bookings().Cancel(ctx, booking.ID)
	require.NoError(t, err)
	require.Equal(t, bookings.StatusCancelled, cancelled.Status)

	_, err = repo.Bookings().Cancel(ctx, booking.ID)
	require.ErrorIs(t, err, bookings.ErrAlreadyCancelled)

	// Cancelled seats are freed.
	_, err = repo.Bookings().Create(ctx, bookings.CreateParams{
		UserID: userID, EventULID: eventULID, Seats: 1,
	})
	require.NoError(t, err)
}

func TestBookingRepositoryUnknownEvent(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	userID := insertUser(t, ctx, pool, "alice@example.com")

	_, err = repo.Bookings().Create(ctx, bookings.CreateParams{
		UserID: userID, EventULID: "01HZXW3V5N4QRS7T9ABCD00000", Seats: 1,
	})
	require.ErrorIs(t, err, bookings.ErrEventNotFound)
}

func TestBookingRepositoryMalformedID(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	// Text that does not cast to uuid reads as not-found, not as a
	// server error.
	_, err = repo.Bookings().GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, bookings.ErrNotFound)

	_, err = repo.Bookings().Cancel(ctx, "not-a-uuid")
	require.ErrorIs(t, err, bookings.ErrNotFound)
}

func TestBookingRepositoryListByUser(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	alice := insertUser(t, ctx, pool, "alice@example.com")
	bob := insertUser(t, ctx, pool, "bob@example.com")
	_, eventULID := insertEvent(t, ctx, pool, "Big Venue", 100)

	for i := 0; i < 3; i++ {
		_, err := repo.Bookings().Create(ctx, bookings.CreateParams{UserID: alice, EventULID: eventULID, Seats: 1})
		require.NoError(t, err)
	}
	_, err = repo.Bookings().Create(ctx, bookings.CreateParams{UserID: bob, EventULID: eventULID, Seats: 1})
	require.NoError(t, err)

	mine, err := repo.Bookings().ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for _, b := range mine {
		require.Equal(t, alice, b.UserID)
	}
}

func TestBookingRepositoryExpireUnpaid(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	userID := insertUser(t, ctx, pool, "alice@example.com")
	_, eventULID := insertEvent(t, ctx, pool, "Expiring Show", 100)

	stale, err := repo.Bookings().Create(ctx, bookings.CreateParams{UserID: userID, EventULID: eventULID, Seats: 2})
	require.NoError(t, err)
	setBookingCreatedAt(t, ctx, pool, stale.ID, time.Now().Add(-2*time.Hour))

	paid, err := repo.Bookings().Create(ctx, bookings.CreateParams{UserID: userID, EventULID: eventULID, Seats: 2})
	require.NoError(t, err)
	setBookingCreatedAt(t, ctx, pool, paid.ID, time.Now().Add(-2*time.Hour))
	_, err = pool.Exec(ctx, `INSERT INTO payments (user_id, booking_id, amount_cents, status) VALUES ($1, $2, 100, 'completed')`, userID, paid.ID)
	require.NoError(t, err)

	fresh, err := repo.Bookings().Create(ctx, bookings.CreateParams{UserID: userID, EventULID: eventULID, Seats: 2})
	require.NoError(t, err)

	expired, err := repo.Bookings().ExpireUnpaid(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, stale.ID, expired[0].ID)
	require.Equal(t, bookings.StatusCancelled, expired[0].Status)

	stillPaid, err := repo.Bookings().GetByID(ctx, paid.ID)
	require.NoError(t, err)
	require.Equal(t, bookings.StatusConfirmed, stillPaid.Status)
	require.True(t, stillPaid.Paid)

	stillFresh, err := repo.Bookings().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, bookings.StatusConfirmed, stillFresh.Status)
}
