package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Logging        LoggingConfig
	Email          EmailConfig
	Jobs           JobsConfig
	Tracing        TracingConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
}

type AuthConfig struct {
	JWTSecret     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type RateLimitConfig struct {
	PublicPerMinute   int
	UserPerMinute     int
	LoginPer15Minutes int
	TrustedProxyCIDRs []string
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type EmailConfig struct {
	Enabled      bool
	From         string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

type JobsConfig struct {
	BookingExpiry        time.Duration
	NotificationAttempts int
	AuditRetention       time.Duration
	ExpirySweepInterval  time.Duration
	RollupSweepInterval  time.Duration
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

// AdminBootstrapConfig seeds an initial admin account on startup when both
// fields are set. Useful for fresh deployments; a no-op when the user exists.
type AdminBootstrapConfig struct {
	Email    string
	Password string
}

// Load builds configuration from environment variables. When path is
// non-empty the YAML file at path is read first and env vars override it.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			MaxConnections: 25,
			MaxIdle:        5,
		},
		Auth: AuthConfig{
			AccessExpiry:  30 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "openbookings",
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   120,
			UserPerMinute:     300,
			LoginPer15Minutes: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Jobs: JobsConfig{
			BookingExpiry:        30 * time.Minute,
			NotificationAttempts: 5,
			AuditRetention:       90 * 24 * time.Hour,
			ExpirySweepInterval:  5 * time.Minute,
			RollupSweepInterval:  24 * time.Hour,
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "openbookings-server",
			SampleRate:  1.0,
		},
		Environment: "development",
	}
}

// fileConfig mirrors Config with yaml tags. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it sets.
type fileConfig struct {
	Server struct {
		Host    *string `yaml:"host"`
		Port    *int    `yaml:"port"`
		BaseURL *string `yaml:"base_url"`
	} `yaml:"server"`
	Database struct {
		URL            *string `yaml:"url"`
		MaxConnections *int    `yaml:"max_connections"`
		MaxIdle        *int    `yaml:"max_idle_connections"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret          *string `yaml:"jwt_secret"`
		AccessExpiryMins   *int    `yaml:"access_expiry_minutes"`
		RefreshExpiryHours *int    `yaml:"refresh_expiry_hours"`
		Issuer             *string `yaml:"issuer"`
	} `yaml:"auth"`
	RateLimit struct {
		PublicPerMinute   *int     `yaml:"public_per_minute"`
		UserPerMinute     *int     `yaml:"user_per_minute"`
		LoginPer15Minutes *int     `yaml:"login_per_15_minutes"`
		TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
	} `yaml:"rate_limit"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
	Email struct {
		Enabled      *bool   `yaml:"enabled"`
		From         *string `yaml:"from"`
		ResendAPIKey *string `yaml:"resend_api_key"`
		SMTPHost     *string `yaml:"smtp_host"`
		SMTPPort     *int    `yaml:"smtp_port"`
		SMTPUser     *string `yaml:"smtp_user"`
		SMTPPassword *string `yaml:"smtp_password"`
	} `yaml:"email"`
	Jobs struct {
		BookingExpiryMins    *int `yaml:"booking_expiry_minutes"`
		NotificationAttempts *int `yaml:"notification_attempts"`
		AuditRetentionDays   *int `yaml:"audit_retention_days"`
	} `yaml:"jobs"`
	Tracing struct {
		Enabled      *bool    `yaml:"enabled"`
		Exporter     *string  `yaml:"exporter"`
		ServiceName  *string  `yaml:"service_name"`
		OTLPEndpoint *string  `yaml:"otlp_endpoint"`
		SampleRate   *float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`
	Environment *string `yaml:"environment"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Server.Host, fc.Server.Host)
	setInt(&cfg.Server.Port, fc.Server.Port)
	setString(&cfg.Server.BaseURL, fc.Server.BaseURL)

	setString(&cfg.Database.URL, fc.Database.URL)
	setInt(&cfg.Database.MaxConnections, fc.Database.MaxConnections)
	setInt(&cfg.Database.MaxIdle, fc.Database.MaxIdle)

	setString(&cfg.Auth.JWTSecret, fc.Auth.JWTSecret)
	if fc.Auth.AccessExpiryMins != nil {
		cfg.Auth.AccessExpiry = time.Duration(*fc.Auth.AccessExpiryMins) * time.Minute
	}
	if fc.Auth.RefreshExpiryHours != nil {
		cfg.Auth.RefreshExpiry = time.Duration(*fc.Auth.RefreshExpiryHours) * time.Hour
	}
	setString(&cfg.Auth.Issuer, fc.Auth.Issuer)

	setInt(&cfg.RateLimit.PublicPerMinute, fc.RateLimit.PublicPerMinute)
	setInt(&cfg.RateLimit.UserPerMinute, fc.RateLimit.UserPerMinute)
	setInt(&cfg.RateLimit.LoginPer15Minutes, fc.RateLimit.LoginPer15Minutes)
	if len(fc.RateLimit.TrustedProxyCIDRs) > 0 {
		cfg.RateLimit.TrustedProxyCIDRs = fc.RateLimit.TrustedProxyCIDRs
	}

	if len(fc.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = fc.CORS.AllowedOrigins
	}

	setString(&cfg.Logging.Level, fc.Logging.Level)
	setString(&cfg.Logging.Format, fc.Logging.Format)

	setBool(&cfg.Email.Enabled, fc.Email.Enabled)
	setString(&cfg.Email.From, fc.Email.From)
	setString(&cfg.Email.ResendAPIKey, fc.Email.ResendAPIKey)
	setString(&cfg.Email.SMTPHost, fc.Email.SMTPHost)
	setInt(&cfg.Email.SMTPPort, fc.Email.SMTPPort)
	setString(&cfg.Email.SMTPUser, fc.Email.SMTPUser)
	setString(&cfg.Email.SMTPPassword, fc.Email.SMTPPassword)

	if fc.Jobs.BookingExpiryMins != nil {
		cfg.Jobs.BookingExpiry = time.Duration(*fc.Jobs.BookingExpiryMins) * time.Minute
	}
	setInt(&cfg.Jobs.NotificationAttempts, fc.Jobs.NotificationAttempts)
	if fc.Jobs.AuditRetentionDays != nil {
		cfg.Jobs.AuditRetention = time.Duration(*fc.Jobs.AuditRetentionDays) * 24 * time.Hour
	}

	setBool(&cfg.Tracing.Enabled, fc.Tracing.Enabled)
	setString(&cfg.Tracing.Exporter, fc.Tracing.Exporter)
	setString(&cfg.Tracing.ServiceName, fc.Tracing.ServiceName)
	setString(&cfg.Tracing.OTLPEndpoint, fc.Tracing.OTLPEndpoint)
	if fc.Tracing.SampleRate != nil {
		cfg.Tracing.SampleRate = *fc.Tracing.SampleRate
	}

	setString(&cfg.Environment, fc.Environment)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("SERVER_BASE_URL", cfg.Server.BaseURL)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxConnections = getEnvInt("DATABASE_MAX_CONNECTIONS", cfg.Database.MaxConnections)
	cfg.Database.MaxIdle = getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", cfg.Database.MaxIdle)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AccessExpiry = getEnvMinutes("JWT_ACCESS_EXPIRY_MINUTES", cfg.Auth.AccessExpiry)
	cfg.Auth.RefreshExpiry = getEnvHours("JWT_REFRESH_EXPIRY_HOURS", cfg.Auth.RefreshExpiry)
	cfg.Auth.Issuer = getEnv("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.UserPerMinute = getEnvInt("RATE_LIMIT_USER", cfg.RateLimit.UserPerMinute)
	cfg.RateLimit.LoginPer15Minutes = getEnvInt("RATE_LIMIT_LOGIN", cfg.RateLimit.LoginPer15Minutes)
	if cidrs := getEnvList("RATE_LIMIT_TRUSTED_PROXIES"); cidrs != nil {
		cfg.RateLimit.TrustedProxyCIDRs = cidrs
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	if origins := getEnvList("CORS_ALLOWED_ORIGINS"); origins != nil {
		cfg.CORS.AllowedOrigins = origins
	}
	// Outside production an empty whitelist means "allow localhost origins".
	cfg.CORS.AllowAllOrigins = cfg.Environment != "production" && len(cfg.CORS.AllowedOrigins) == 0

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Email.Enabled = getEnvBool("EMAIL_ENABLED", cfg.Email.Enabled)
	cfg.Email.From = getEnv("EMAIL_FROM", cfg.Email.From)
	cfg.Email.ResendAPIKey = getEnv("RESEND_API_KEY", cfg.Email.ResendAPIKey)
	cfg.Email.SMTPHost = getEnv("SMTP_HOST", cfg.Email.SMTPHost)
	cfg.Email.SMTPPort = getEnvInt("SMTP_PORT", cfg.Email.SMTPPort)
	cfg.Email.SMTPUser = getEnv("SMTP_USER", cfg.Email.SMTPUser)
	cfg.Email.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.Email.SMTPPassword)

	cfg.Jobs.BookingExpiry = getEnvMinutes("JOB_BOOKING_EXPIRY_MINUTES", cfg.Jobs.BookingExpiry)
	cfg.Jobs.NotificationAttempts = getEnvInt("JOB_NOTIFICATION_ATTEMPTS", cfg.Jobs.NotificationAttempts)
	if days := getEnvInt("JOB_AUDIT_RETENTION_DAYS", 0); days > 0 {
		cfg.Jobs.AuditRetention = time.Duration(days) * 24 * time.Hour
	}

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.ServiceName = getEnv("TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.OTLPEndpoint = getEnv("TRACING_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)

	cfg.AdminBootstrap.Email = getEnv("ADMIN_EMAIL", cfg.AdminBootstrap.Email)
	cfg.AdminBootstrap.Password = getEnv("ADMIN_PASSWORD", cfg.AdminBootstrap.Password)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	if mins := getEnvInt(key, 0); mins > 0 {
		return time.Duration(mins) * time.Minute
	}
	return fallback
}

func getEnvHours(key string, fallback time.Duration) time.Duration {
	if hours := getEnvInt(key, 0); hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
