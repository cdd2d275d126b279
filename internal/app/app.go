// Package app assembles repositories, services and the HTTP server from a
// configuration and a set of open connections.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/cache"
	"github.com/iliyamo/crowdsource-ideas/internal/config"
	"github.com/iliyamo/crowdsource-ideas/internal/handler"
	"github.com/iliyamo/crowdsource-ideas/internal/mailer"
	"github.com/iliyamo/crowdsource-ideas/internal/middleware"
	"github.com/iliyamo/crowdsource-ideas/internal/queue"
	"github.com/iliyamo/crowdsource-ideas/internal/repository"
	"github.com/iliyamo/crowdsource-ideas/internal/router"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// Options are the inputs to New. Redis may be nil, which disables the
// session cache and the stats response cache.
type Options struct {
	Config config.Config
	Cache  config.CacheConfig
	DB     *sql.DB
	Redis  *redis.Client
	Sender service.VerificationSender
	Log    *logrus.Logger
}

// App is the assembled application.
type App struct {
	Echo        *echo.Echo
	Credentials *service.CredentialStore
	Sessions    *service.SessionManager
	Invitations *service.InvitationLedger
	Ideas       *service.IdeaBoard
	Votes       *service.VoteLedger
}

// New wires every layer and registers the routes.
func New(o Options) *App {
	log := o.Log
	accounts := repository.NewAccountRepo(o.DB)
	sessions := repository.NewSessionRepo(o.DB)
	invitations := repository.NewInvitationRepo(o.DB)
	ideas := repository.NewIdeaRepo(o.DB)
	comments := repository.NewCommentRepo(o.DB)
	votes := repository.NewVoteRepo(o.DB)

	a := &App{
		Credentials: service.NewCredentialStore(accounts, o.Sender, log.WithField("component", "credentials"),
			service.CredentialConfig{BcryptCost: o.Config.BcryptCost, VerificationTTL: o.Config.VerificationTTL}),
		Sessions: service.NewSessionManager(sessions, accounts, cache.NewSessionCache(o.Redis),
			o.Config.JWTSecret, o.Config.SessionTTL, log.WithField("component", "sessions")),
		Invitations: service.NewInvitationLedger(o.DB, invitations, accounts, log.WithField("component", "invitations")),
		Ideas:       service.NewIdeaBoard(o.DB, ideas, comments, votes, accounts, log.WithField("component", "ideas")),
		Votes:       service.NewVoteLedger(o.DB, ideas, votes, log.WithField("component", "votes")),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORS())
	e.HTTPErrorHandler = errorHandler(log)

	base := handler.Base{Log: log, Debug: o.Config.IsDev()}
	authLog := log.WithField("component", "auth")
	ideaHandler := &handler.IdeaHandler{Base: base, Board: a.Ideas, Votes: a.Votes}

	router.RegisterRoutes(e,
		&handler.HealthHandler{Base: base, DB: o.DB, Sessions: a.Sessions, Board: a.Ideas},
		middleware.ResponseCache(o.Cache, o.Redis))
	router.RegisterAuth(e, &handler.AuthHandler{
		Base: base, Credentials: a.Credentials, Sessions: a.Sessions, Invitations: a.Invitations,
	}, a.Sessions, authLog)
	router.RegisterIdeas(e, ideaHandler, a.Sessions, authLog)
	router.RegisterModerator(e, &handler.ModerationHandler{Base: base, Board: a.Ideas}, ideaHandler, a.Sessions, authLog)
	router.RegisterAdmin(e, &handler.AdminHandler{Base: base, Invitations: a.Invitations}, a.Sessions, authLog)

	a.Echo = e
	return a
}

// errorHandler renders echo's own errors (unknown routes, oversized
// bodies) in the API's error shape.
func errorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := http.StatusInternalServerError, "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code, msg = he.Code, fmt.Sprint(he.Message)
		} else {
			log.WithError(err).Error("unhandled error")
		}
		slug := strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_"))
		_ = c.JSON(code, echo.Map{"error": slug, "message": msg})
	}
}

// NewSender picks how verification codes leave the process: through the
// RabbitMQ queue when RABBITMQ_URL is set, otherwise straight to the mail
// provider.
func NewSender(cfg config.Config, log logrus.FieldLogger) (service.VerificationSender, error) {
	if cfg.RabbitMQURL != "" {
		return queue.NewPublisher(cfg.RabbitMQURL, log.WithField("component", "publisher")), nil
	}
	m, err := NewMailer(cfg, log)
	if err != nil {
		return nil, err
	}
	return mailer.VerificationSender{Mailer: m, TTL: cfg.VerificationTTL}, nil
}

// NewMailer builds the configured mail provider.
func NewMailer(cfg config.Config, log logrus.FieldLogger) (mailer.Mailer, error) {
	mc := cfg.Mail
	return mailer.New(mailer.Config{
		Provider:      mc.Provider,
		From:          mc.From,
		FromName:      mc.FromName,
		SendGridKey:   mc.SendGridKey,
		MailgunDomain: mc.MailgunDomain,
		MailgunKey:    mc.MailgunKey,
		MailgunAPI:    mc.MailgunAPI,
		SMTPHost:      mc.SMTPHost,
		SMTPPort:      mc.SMTPPort,
		SMTPUser:      mc.SMTPUser,
		SMTPPassword:  mc.SMTPPassword,
	}, log.WithField("component", "mailer"))
}
