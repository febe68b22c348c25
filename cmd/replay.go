package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opsvector/breach-alert-app/internal/controllers/aws"
	"github.com/opsvector/breach-alert-app/internal/handler"
	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/notify"
	"github.com/opsvector/breach-alert-app/internal/registry"
	"github.com/opsvector/breach-alert-app/internal/rules"
)

var replaySend bool

// replayCmd runs a captured EventBridge event file through the full
// pipeline. Without --send the rendered notification is printed instead
// of delivered, so production events can be replayed safely.
var replayCmd = &cobra.Command{
	Use:   "replay <event.json>",
	Short: "Replay a captured CloudTrail event through the classification pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read event file %s", args[0])
		}
		var event models.Event
		if err := json.Unmarshal(data, &event); err != nil {
			return errors.Wrapf(err, "failed to parse event file %s", args[0])
		}

		var app *handler.Handler
		if replaySend {
			app, err = setup(cmd.Context())
		} else {
			app, err = setupDryRun(cmd.Context())
		}
		if err != nil {
			return err
		}

		response, err := app.Process(cmd.Context(), &event)
		logger.Info("replay finished",
			slog.String("status", string(response.Status)),
			slog.String("body", response.Body),
			slog.Any("error", err))
		return err
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replaySend, "send", false, "deliver the notification instead of printing it")
}

// setupDryRun builds the pipeline with a delivery stub that prints the
// rendered message. Cloud lookups still hit the real account.
func setupDryRun(ctx context.Context) (*handler.Handler, error) {
	controller, err := aws.NewController(ctx,
		aws.WithLogger(logger.With("component", "aws-controller")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AWS controller")
	}

	reg := registry.New(registry.WithLogger(logger))
	ruleset := rules.New(cfg,
		rules.WithLogger(logger),
		rules.WithLookup(controller))
	ruleset.RegisterAll(reg)

	if cfg.Alerting.SourceEmail == "" {
		cfg.Alerting.SourceEmail = "dry-run@localhost"
	}

	return handler.NewBreachHandler(cfg,
		handler.WithLogger(logger),
		handler.WithRegistry(reg),
		handler.WithComposer(notify.New(cfg, notify.WithLogger(logger))),
		handler.WithDelivery(printDelivery{}))
}

type printDelivery struct{}

func (printDelivery) Send(_ context.Context, subject, htmlBody string, from string, recipients []string) error {
	fmt.Printf("From: %s\nTo: %v\nSubject: %s\n\n%s\n", from, recipients, subject, htmlBody)
	return nil
}
