// Package cmd provides the entrypoint for the breach-alert-app cli.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsvector/breach-alert-app/internal/config"
)

var (
	configFilePath string
	verbosity      int
	callerTrace    bool

	cfg    *config.Config
	logger *slog.Logger
)

// New returns the root command for the breach-alert-app.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breach-alert-app",
		Short: "Classifies CloudTrail security events and emails alerts via SES",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(configFilePath)
			if err != nil {
				return err
			}
			if verbosity > cfg.Logging.Verbosity {
				cfg.Logging.Verbosity = verbosity
			}
			if callerTrace {
				cfg.Logging.CallerTrace = true
			}
			logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				AddSource: cfg.Logging.CallerTrace,
				Level:     slog.LevelWarn - slog.Level(cfg.Logging.Verbosity*4),
			}))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return lambdaCmd.RunE(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "config.yaml", "path to the configuration file")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbosity", "v", "increase logger verbosity (default WarnLevel)")
	cmd.PersistentFlags().BoolVarP(&callerTrace, "verbosity-caller-trace", "V", false, "enable caller trace in logs")

	cmd.AddCommand(
		lambdaCmd,
		replayCmd,
	)

	return cmd
}
