package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	Key      string
	From     string
	FromName string
	// Host overrides https://api.sendgrid.com, for tests.
	Host string
}

func (s *SendGridMailer) Send(ctx context.Context, m Message) error {
	from := mail.NewEmail(s.FromName, s.From)
	to := mail.NewEmail("", m.To)
	message := mail.NewSingleEmail(from, m.Subject, to, m.Text, m.HTML)

	client := sendgrid.NewSendClient(s.Key)
	if s.Host != "" {
		client.BaseURL = s.Host + "/v3/mail/send"
	}
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}
