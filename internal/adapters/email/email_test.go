package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/domain"
)

func exportData() *domain.RegistrationExportEmailData {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	return &domain.RegistrationExportEmailData{
		EventTitle:    "Camp <2026>",
		EventStart:    time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		EventLocation: "Hall A",
		Total:         2,
		Rows: []domain.RegistrationExportRow{
			{Index: 1, ParticipantName: "Alice", RegisteredBy: "Ann", Phone: "0900", RegisteredAt: at},
			{Index: 2, ParticipantName: "Bob", RegisteredBy: "Ann", Phone: "0900", Remark: "late", RegisteredAt: at},
		},
		GeneratedAt: at,
	}
}

func TestTemplateRenderer_RegistrationExport(t *testing.T) {
	r := NewTemplateRenderer()
	subject, html, text, err := r.Render("registration_export", exportData())
	require.NoError(t, err)

	assert.Equal(t, "Registrations for Camp <2026> (2)", subject)
	assert.Contains(t, html, "Camp &lt;2026&gt;")
	assert.Contains(t, html, "<td>Bob</td>")
	assert.Contains(t, text, "2. Bob (by Ann, 0900) 2026-05-01 09:30 - late")
	assert.Contains(t, text, "Location: Hall A")
}

func TestTemplateRenderer_EmptyAndUnknown(t *testing.T) {
	r := NewTemplateRenderer()
	data := exportData()
	data.Rows = nil
	data.Total = 0
	_, html, text, err := r.Render("registration_export", data)
	require.NoError(t, err)
	assert.Contains(t, html, "No registrations.")
	assert.Contains(t, text, "No registrations.")

	_, _, _, err = r.Render("missing", data)
	assert.Error(t, err)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := &sesMailer{client: client, fromAddress: "noreply@example.com", fromName: "Event Signup", logger: slog.Default()}

	require.NoError(t, m.Send(context.Background(), "owner@example.com", "subj", "<p>h</p>", ""))
	assert.Equal(t, "Event Signup <noreply@example.com>", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"owner@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "<p>h</p>", aws.ToString(client.input.Message.Body.Html.Data))
	assert.Nil(t, client.input.Message.Body.Text)

	client.err = errors.New("throttled")
	assert.ErrorIs(t, m.Send(context.Background(), "owner@example.com", "subj", "", "t"), client.err)
}

func TestNewMailer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m, err := NewMailer(MailerConfig{Provider: "carrier-pigeon"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)
	assert.Contains(t, buf.String(), "unknown email provider")
	require.NoError(t, m.Send(context.Background(), "a@example.com", "s", "", ""))

	_, err = NewMailer(MailerConfig{Provider: "ses"}, logger)
	assert.Error(t, err)

	m, err = NewMailer(MailerConfig{Provider: "ses", FromAddress: "noreply@example.com", SES: SESConfig{Region: "us-east-1"}}, logger)
	require.NoError(t, err)
	assert.IsType(t, &sesMailer{}, m)
}
