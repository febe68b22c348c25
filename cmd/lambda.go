package cmd

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opsvector/breach-alert-app/internal/controllers/aws"
	"github.com/opsvector/breach-alert-app/internal/handler"
	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/notify"
	"github.com/opsvector/breach-alert-app/internal/registry"
	"github.com/opsvector/breach-alert-app/internal/rules"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda consuming EventBridge-delivered CloudTrail events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := setup(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to setup lambda")
		}

		logger.Info("lambda starting...")
		lambda.StartWithOptions(func(ctx context.Context, event models.Event) (models.Response, error) {
			response, err := app.Process(ctx, &event)
			logger.Info("handled event",
				slog.String("status", string(response.Status)),
				slog.Any("error", err))
			return response, err
		}, lambda.WithContext(cmd.Context()))

		return nil
	},
}

// setup wires configuration, AWS clients and the classification pipeline.
// Transport credentials are resolved before the runtime controller is
// built so the SES client lands in the configured region.
func setup(ctx context.Context) (*handler.Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	if cfg.Secret.Name != "" {
		boot, err := aws.NewController(ctx,
			aws.WithConfig(&awsCfg),
			aws.WithLogger(logger.With("component", "aws-controller")),
			aws.WithSecretsClient(aws.NewSecretsClient(awsCfg, cfg.Secret.Region)))
		if err != nil {
			return nil, err
		}
		secret, err := boot.ResolveTransportSecret(ctx, cfg.Secret.Name)
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve transport secret")
		}
		if v := secret["EMAIL_FROM"]; v != "" && cfg.Alerting.SourceEmail == "" {
			cfg.Alerting.SourceEmail = v
		}
		if v := secret["SES_REGION"]; v != "" {
			cfg.Alerting.SESRegion = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Alerting.Recipients) == 0 {
		logger.Warn("no alert recipients configured, alerts reach only the acting user")
	}

	controller, err := aws.NewController(ctx,
		aws.WithConfig(&awsCfg),
		aws.WithLogger(logger.With("component", "aws-controller")),
		aws.WithSESClient(aws.NewSESClient(awsCfg, cfg.Alerting.SESRegion)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AWS controller")
	}

	reg := registry.New(registry.WithLogger(logger))
	ruleset := rules.New(cfg,
		rules.WithLogger(logger),
		rules.WithLookup(controller))
	ruleset.RegisterAll(reg)
	logger.Debug("event registry populated", slog.Int("handlers", reg.Len()))

	return handler.NewBreachHandler(cfg,
		handler.WithLogger(logger),
		handler.WithRegistry(reg),
		handler.WithComposer(notify.New(cfg, notify.WithLogger(logger))),
		handler.WithDelivery(controller))
}
