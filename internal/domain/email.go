package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationExportEmailData holds data for the registration export email.
type RegistrationExportEmailData struct {
	EventTitle    string
	EventStart    time.Time
	EventLocation string
	Total         int
	Rows          []RegistrationExportRow
	GeneratedAt   time.Time
}

// RegistrationExportRow is one line of the export table.
type RegistrationExportRow struct {
	Index           int
	ParticipantName string
	RegisteredBy    string
	Phone           string
	Remark          string
	RegisteredAt    time.Time
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendRegistrationExport(ctx context.Context, to string, data *RegistrationExportEmailData) error
}
