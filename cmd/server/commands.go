package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"

	"github.com/iliyamo/crowdsource-ideas/internal/app"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/queue"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()
			if err := env.migrate(cmd.Context()); err != nil {
				return err
			}
			env.log.WithField("driver", env.cfg.DBDriver).Info("schema applied")
			return nil
		},
	}
}

func newInitAdminCommand() *cobra.Command {
	var (
		in       service.RegisterInput
		withCode bool
		maxUses  int
	)
	cmd := &cobra.Command{
		Use:   "init-admin",
		Short: "Create the first admin account and starter invitation codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()
			ctx := cmd.Context()
			if err := env.migrate(ctx); err != nil {
				return err
			}

			generated := in.Password == ""
			if generated {
				if in.Password, err = gonanoid.New(16); err != nil {
					return err
				}
			}
			a := env.offline()
			admin, err := a.Credentials.CreateAdmin(ctx, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "admin created: %s (id %d)\n", admin.Email, admin.ID)
			if generated {
				fmt.Fprintf(out, "password: %s\nchange it after the first login\n", in.Password)
			}
			if !withCode {
				return nil
			}
			for _, role := range []model.Role{model.RoleModerator, model.RoleContentManager} {
				inv, err := a.Invitations.Create(ctx, admin, service.CreateInvitationInput{Role: string(role), MaxUses: maxUses})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s invitation: %s (%d uses, expires %s)\n",
					role, inv.Code, inv.MaxUses, inv.ExpiresAt.Format("2006-01-02"))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "admin@example.com", "admin email")
	f.StringVar(&in.Username, "username", "Administrator", "admin display name")
	f.StringVar(&in.Password, "password", "", "admin password (generated when empty)")
	f.BoolVar(&withCode, "codes", true, "also create moderator and content manager invitation codes")
	f.IntVar(&maxUses, "max-uses", 5, "uses per starter invitation code")
	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()
			n, err := env.offline().Sessions.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
			return nil
		},
	}
}

func newMailerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mailer",
		Short: "Consume the verification email queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()
			if env.cfg.RabbitMQURL == "" {
				return errors.New("RABBITMQ_URL is required for the mailer")
			}
			m, err := app.NewMailer(env.cfg, env.log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			c := &queue.Consumer{
				URL:    env.cfg.RabbitMQURL,
				Mailer: m,
				TTL:    env.cfg.VerificationTTL,
				Log:    env.log.WithField("component", "mailer"),
			}
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
