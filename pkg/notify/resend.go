package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
)

// Message is a rendered citizen status update.
type Message struct {
	To      string
	Name    string
	Subject string

	TrackingID  string
	StatusLabel string
	Note        string
	TrackURL    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var statusTemplate = template.Must(template.New("status").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<p>Dear {{.Name}},</p>
<p>There is an update on your grievance <strong>{{.TrackingID}}</strong>.</p>
<p>Current status: <strong>{{.StatusLabel}}</strong></p>
{{if .Note}}<p>Remarks: {{.Note}}</p>{{end}}
{{if .TrackURL}}<p><a href="{{.TrackURL}}">Track your grievance</a></p>{{end}}
<p>This is an automated message. Please do not reply.</p>
</body></html>`))

// ResendMailer sends status updates through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, fromEmail string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   fmt.Sprintf("Grievance Cell <%s>", fromEmail),
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	html, err := Render(msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Render produces the HTML body for msg.
func Render(msg Message) (string, error) {
	var body bytes.Buffer
	if err := statusTemplate.Execute(&body, msg); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return body.String(), nil
}
