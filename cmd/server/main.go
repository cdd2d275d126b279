package main // Entry point package

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "crowdsource-ideas",
		Short:         "Crowdsourced idea board API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := newServeCommand()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(
		serve,
		newMigrateCommand(),
		newInitAdminCommand(),
		newSweepCommand(),
		newMailerCommand(),
	)
	return root
}
