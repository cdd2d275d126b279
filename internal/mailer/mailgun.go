package mailer

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunMailer sends through the Mailgun messages API.
type MailgunMailer struct {
	Domain string
	Key    string
	From   string
	// APIBase overrides the default API endpoint (EU region, tests).
	APIBase string
}

func (s *MailgunMailer) Send(ctx context.Context, m Message) error {
	mg := mailgun.NewMailgun(s.Domain, s.Key)
	if s.APIBase != "" {
		mg.SetAPIBase(s.APIBase)
	}
	message := mg.NewMessage(s.From, m.Subject, m.Text, m.To)
	if m.HTML != "" {
		message.SetHtml(m.HTML)
	}
	if _, _, err := mg.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun: %w", err)
	}
	return nil
}
