package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventsignup/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendRegistrationExport sends the registration list using the "registration_export" template.
func (s *emailService) SendRegistrationExport(ctx context.Context, to string, data *domain.RegistrationExportEmailData) error {
	if data == nil {
		return fmt.Errorf("registration export data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("registration_export", data)
	if err != nil {
		return fmt.Errorf("failed to render registration_export template: %w", err)
	}
	if err := s.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send registration export email: %w", err)
	}
	s.logger.InfoContext(ctx, "registration export sent", "to", to, "event", data.EventTitle, "rows", data.Total)
	return nil
}
