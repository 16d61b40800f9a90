package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*time.Minute, cfg.Auth.AccessExpiry)
	require.Equal(t, 168*time.Hour, cfg.Auth.RefreshExpiry)
	require.Equal(t, 30*time.Minute, cfg.Jobs.BookingExpiry)
	require.Equal(t, 5, cfg.Jobs.NotificationAttempts)
	require.Equal(t, 90*24*time.Hour, cfg.Jobs.AuditRetention)
	require.Equal(t, "none", cfg.Tracing.Exporter)
	require.Equal(t, "development", cfg.Environment)
	require.True(t, cfg.CORS.AllowAllOrigins)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_ACCESS_EXPIRY_MINUTES", "15")
	t.Setenv("JOB_BOOKING_EXPIRY_MINUTES", "45")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessExpiry)
	require.Equal(t, 45*time.Minute, cfg.Jobs.BookingExpiry)
	require.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	require.False(t, cfg.CORS.AllowAllOrigins)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9999
database:
  url: postgres://file-host/bookings
auth:
  jwt_secret: file-secret
  access_expiry_minutes: 10
jobs:
  audit_retention_days: 30
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env wins over file, file wins over defaults.
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "postgres://file-host/bookings", cfg.Database.URL)
	require.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	require.Equal(t, 10*time.Minute, cfg.Auth.AccessExpiry)
	require.Equal(t, 30*24*time.Hour, cfg.Jobs.AuditRetention)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bookings")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}
