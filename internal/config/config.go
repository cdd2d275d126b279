package config // package config loads application configuration from environment variables

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (dev, test, prod)
	Port string // HTTP port to listen on

	DBDriver string // mysql or sqlite
	DBPath   string // sqlite file, when DBDriver is sqlite
	DBUser   string
	DBPass   string // may be empty
	DBHost   string
	DBPort   string
	DBName   string

	JWTSecret       string        // HS256 signing key for session tokens
	SessionTTL      time.Duration // SESSION_TTL_DAYS
	BcryptCost      int
	VerificationTTL time.Duration // VERIFICATION_TTL_HOURS

	LogLevel  string
	LogFormat string // json or text

	RabbitMQURL string // empty sends verification email inline

	Mail MailConfig
}

// MailConfig selects the email provider.
type MailConfig struct {
	Provider      string // log, sendgrid, mailgun or smtp
	From          string
	FromName      string
	SendGridKey   string
	MailgunDomain string
	MailgunKey    string
	MailgunAPI    string
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPassword  string
}

// Load reads configuration values from environment variables. Required
// variables are enforced by must() and missing values terminate the process.
func Load() Config {
	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		DBDriver:        strings.ToLower(envStr("DB_DRIVER", "mysql")),
		JWTSecret:       must("JWT_SECRET"),
		SessionTTL:      time.Duration(envInt("SESSION_TTL_DAYS", 7)) * 24 * time.Hour,
		BcryptCost:      envInt("BCRYPT_COST", 10),
		VerificationTTL: time.Duration(envInt("VERIFICATION_TTL_HOURS", 24)) * time.Hour,
		LogLevel:        envStr("LOG_LEVEL", "info"),
		LogFormat:       envStr("LOG_FORMAT", ""),
		RabbitMQURL:     envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
		Mail: MailConfig{
			Provider:      envStr("MAIL_PROVIDER", "log"),
			From:          envStr("MAIL_FROM", ""),
			FromName:      envStr("MAIL_FROM_NAME", "Crowdsource Ideas"),
			SendGridKey:   envStr("SENDGRID_API_KEY", ""),
			MailgunDomain: envStr("MAILGUN_DOMAIN", ""),
			MailgunKey:    envStr("MAILGUN_API_KEY", ""),
			MailgunAPI:    envStr("MAILGUN_API_BASE", ""),
			SMTPHost:      envStr("SMTP_HOST", ""),
			SMTPPort:      envStr("SMTP_PORT", "587"),
			SMTPUser:      envStr("SMTP_USER", ""),
			SMTPPassword:  envStr("SMTP_PASSWORD", ""),
		},
	}

	switch cfg.DBDriver {
	case "sqlite":
		cfg.DBPath = envStr("DB_PATH", "crowdsource.db")
	default:
		cfg.DBDriver = "mysql"
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = envStr("DB_PASS", "")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		logrus.Fatalf("invalid BCRYPT_COST %d: must be between 4 and 31", cfg.BcryptCost)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
		if cfg.IsDev() {
			cfg.LogFormat = "text"
		}
	}
	return cfg
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }
