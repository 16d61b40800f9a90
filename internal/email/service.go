// Package email renders and delivers notification emails. Delivery goes
// through Resend when an API key is configured, plain SMTP otherwise, and
// a log-only mode when sending is disabled.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/openbookings/server/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	logger       zerolog.Logger
	resendClient *resend.Client
}

// notificationSpec maps a notification event to its template and subject.
type notificationSpec struct {
	template string
	subject  string
}

var notificationSpecs = map[string]notificationSpec{
	"user.registered":   {"welcome.html", "Welcome to OpenBookings"},
	"user.login":        {"login_alert.html", "New sign-in to your account"},
	"booking.created":   {"booking_confirmed.html", "Your booking is confirmed"},
	"booking.cancelled": {"booking_cancelled.html", "Your booking was cancelled"},
	"payment.completed": {"payment_receipt.html", "Payment received"},
	"payment.failed":    {"payment_failed.html", "Payment failed"},
	"event.created":     {"event_update.html", "Event published"},
	"event.updated":     {"event_update.html", "Event updated"},
	"event.deleted":     {"event_update.html", "Event removed"},
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled && cfg.ResendAPIKey == "" && cfg.SMTPHost == "" {
		return nil, fmt.Errorf("email enabled but neither RESEND_API_KEY nor SMTP_HOST configured")
	}
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.ResendAPIKey != "" {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// TemplateData is handed to every notification template.
type TemplateData struct {
	Email string
	Data  map[string]string
}

// SendNotification renders the template for event and delivers it to the
// recipient. Unknown events are an error so a bad enqueue surfaces in the
// job queue rather than vanishing.
func (s *Service) SendNotification(ctx context.Context, to, event string, data map[string]string) error {
	spec, ok := notificationSpecs[event]
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}

	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	htmlBody, err := s.renderTemplate(spec.template, TemplateData{Email: to, Data: data})
	if err != nil {
		return fmt.Errorf("render %s: %w", spec.template, err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("event", event).
			Str("subject", spec.subject).
			Msg("email disabled, skipping delivery")
		return nil
	}

	if s.resendClient != nil {
		return s.sendViaResend(ctx, to, spec.subject, htmlBody)
	}
	return s.sendViaSMTP(to, spec.subject, htmlBody)
}

func (s *Service) renderTemplate(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	// Header injection guard.
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
