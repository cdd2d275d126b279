// Package mailer delivers transactional email through SendGrid, Mailgun,
// plain SMTP or the application log.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is a single transactional email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a Message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Config selects and configures a provider.
type Config struct {
	Provider string // log | sendgrid | mailgun | smtp
	From     string
	FromName string

	SendGridKey  string
	SendGridHost string

	MailgunDomain string
	MailgunKey    string
	MailgunAPI    string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
}

// New builds the Mailer named by cfg.Provider. An empty provider logs
// messages instead of sending them.
func New(cfg Config, log logrus.FieldLogger) (Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return &LogMailer{Log: log}, nil
	case "sendgrid":
		if cfg.SendGridKey == "" || cfg.From == "" {
			return nil, errors.New("mailer: sendgrid requires SENDGRID_API_KEY and MAIL_FROM")
		}
		return &SendGridMailer{Key: cfg.SendGridKey, From: cfg.From, FromName: cfg.FromName, Host: cfg.SendGridHost}, nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunKey == "" || cfg.From == "" {
			return nil, errors.New("mailer: mailgun requires MAILGUN_DOMAIN, MAILGUN_API_KEY and MAIL_FROM")
		}
		return &MailgunMailer{Domain: cfg.MailgunDomain, Key: cfg.MailgunKey, From: cfg.From, APIBase: cfg.MailgunAPI}, nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort == "" || cfg.From == "" {
			return nil, errors.New("mailer: smtp requires SMTP_HOST, SMTP_PORT and MAIL_FROM")
		}
		return &SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUser, Password: cfg.SMTPPassword, From: cfg.From}, nil
	default:
		return nil, fmt.Errorf("mailer: unknown provider %q", cfg.Provider)
	}
}

// VerificationMessage renders the email that carries a verification code.
func VerificationMessage(to, code string, ttl time.Duration) Message {
	hours := int(ttl.Hours())
	if hours <= 0 {
		hours = 24
	}
	return Message{
		To:      to,
		Subject: "Verify your email address",
		Text: fmt.Sprintf("Your verification code is %s\n\nIt expires in %d hours. If you did not sign up, ignore this email.\n",
			code, hours),
		HTML: fmt.Sprintf("<p>Your verification code is <strong>%s</strong></p><p>It expires in %d hours. If you did not sign up, ignore this email.</p>",
			code, hours),
	}
}

// VerificationSender sends verification codes synchronously through a
// Mailer. It is used when no message broker is configured.
type VerificationSender struct {
	Mailer Mailer
	TTL    time.Duration
}

func (s VerificationSender) SendVerificationEmail(ctx context.Context, address, code string) error {
	return s.Mailer.Send(ctx, VerificationMessage(address, code, s.TTL))
}

// LogMailer writes messages to the log. It is the development default.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (l *LogMailer) Send(_ context.Context, m Message) error {
	l.Log.WithFields(logrus.Fields{"to": m.To, "subject": m.Subject}).Info(m.Text)
	return nil
}
