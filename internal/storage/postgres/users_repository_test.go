package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openbookings/server/internal/domain/users"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	created, err := repo.Users().Create(ctx, users.CreateParams{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         users.RoleUser,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "alice@example.com", created.Email)
	require.Equal(t, users.RoleUser, created.Role)

	byEmail, err := repo.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", byID.Email)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Users().Create(ctx, users.CreateParams{Email: "dup@example.com", PasswordHash: "h", Role: users.RoleUser})
	require.NoError(t, err)

	_, err = repo.Users().Create(ctx, users.CreateParams{Email: "dup@example.com", PasswordHash: "h", Role: users.RoleUser})
	require.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestUserRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	_, err = repo.Users().GetByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, users.ErrNotFound)

	_, err = repo.Users().GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, users.ErrNotFound)
}
