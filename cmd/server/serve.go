package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/crowdsource-ideas/internal/app"
	"github.com/iliyamo/crowdsource-ideas/internal/config"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

func newServeCommand() *cobra.Command {
	var (
		skipMigrate   bool
		sweepInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !skipMigrate {
				if err := env.migrate(ctx); err != nil {
					return err
				}
			}

			rdb := config.NewRedisClient(config.LoadRedisConfig(), env.log)
			if rdb != nil {
				defer rdb.Close()
			}
			sender, err := app.NewSender(env.cfg, env.log)
			if err != nil {
				return err
			}
			a := app.New(app.Options{
				Config: env.cfg,
				Cache:  config.LoadCacheConfig(),
				DB:     env.db,
				Redis:  rdb,
				Sender: sender,
				Log:    env.log,
			})

			go sweepSessions(ctx, a.Sessions, sweepInterval, env)

			addr := ":" + env.cfg.Port
			errc := make(chan error, 1)
			go func() { errc <- a.Echo.Start(addr) }()
			env.log.WithFields(logrus.Fields{"addr": addr, "env": env.cfg.Env}).Info("listening")

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			env.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return a.Echo.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply the schema on startup")
	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", time.Hour, "how often expired sessions are deleted (0 disables)")
	return cmd
}

// sweepSessions deletes expired session rows every interval until ctx ends.
func sweepSessions(ctx context.Context, sessions *service.SessionManager, interval time.Duration, env *env) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.Sweep(ctx)
			if err != nil {
				env.log.WithError(err).Warn("session sweep failed")
				continue
			}
			if n > 0 {
				env.log.WithField("deleted", n).Info("expired sessions swept")
			}
		}
	}
}
