package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/auth"
)

// Notifier enqueues account notification jobs. Failures are logged, never
// surfaced to the caller; the account operation already succeeded.
type Notifier interface {
	Notify(ctx context.Context, event, userID, email string, data map[string]string) error
}

type Service struct {
	repo     Repository
	tokens   *auth.JWTManager
	notifier Notifier
}

func NewService(repo Repository, tokens *auth.JWTManager, notifier Notifier) *Service {
	return &Service{repo: repo, tokens: tokens, notifier: notifier}
}

// Register creates an account and returns the user with a token pair.
func (s *Service) Register(ctx context.Context, email, password string) (*User, auth.TokenPair, error) {
	email = normalizeEmail(email)
	if len(password) < 8 {
		return nil, auth.TokenPair{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return nil, auth.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("generate tokens: %w", err)
	}

	s.notify(ctx, "user.registered", user, nil)
	return user, pair, nil
}

// Login verifies credentials and returns a token pair. Unknown email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *Service) Login(ctx context.Context, email, password string) (*User, auth.TokenPair, error) {
	email = normalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCredentials
		}
		return nil, auth.TokenPair{}, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, auth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, auth.TokenPair{}, fmt.Errorf("generate tokens: %w", err)
	}

	s.notify(ctx, "user.login", user, nil)
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new access token. The user
// must still exist.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return auth.TokenPair{}, err
	}

	user, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.TokenPair{}, auth.ErrInvalidToken
		}
		return auth.TokenPair{}, err
	}

	return s.tokens.GenerateAccess(user.ID, user.Email, user.Role)
}

// VerifyResult is the response of token introspection.
type VerifyResult struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Verify checks an access token's signature, expiry and type.
func (s *Service) Verify(ctx context.Context, token string) VerifyResult {
	claims, err := s.tokens.Validate(token, auth.TokenTypeAccess)
	if err != nil {
		return VerifyResult{Valid: false}
	}
	return VerifyResult{
		Valid:  true,
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}
}

// EnsureAdmin creates an admin account when it does not exist yet. Used at
// startup to bootstrap a fresh deployment.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.repo.Create(ctx, CreateParams{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

func (s *Service) notify(ctx context.Context, event string, user *User, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, user.ID, user.Email, data); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", event).Msg("failed to enqueue notification")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
