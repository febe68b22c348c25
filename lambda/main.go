// Minimal Lambda entrypoint configured entirely from the environment.
// The cmd entrypoint is preferred for deployments that ship a config
// file alongside the binary.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/opsvector/breach-alert-app/internal/config"
	"github.com/opsvector/breach-alert-app/internal/controllers/aws"
	"github.com/opsvector/breach-alert-app/internal/handler"
	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/notify"
	"github.com/opsvector/breach-alert-app/internal/registry"
	"github.com/opsvector/breach-alert-app/internal/rules"
)

type Runtime struct {
	app    *handler.Handler
	logger *slog.Logger
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})).With("mode", "lambda")
	logger.Info("spawned...")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load AWS configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// The transport secret is resolved before the runtime controller is
	// built so the SES client lands in the configured region.
	if cfg.Secret.Name != "" {
		boot, err := aws.NewController(ctx,
			aws.WithConfig(&awsCfg),
			aws.WithLogger(logger.With("component", "aws-controller")),
			aws.WithSecretsClient(aws.NewSecretsClient(awsCfg, cfg.Secret.Region)))
		if err != nil {
			logger.Error("failed to create AWS controller", slog.Any("error", err))
			os.Exit(1)
		}
		secret, err := boot.ResolveTransportSecret(ctx, cfg.Secret.Name)
		if err != nil {
			logger.Error("failed to resolve transport secret", slog.Any("error", err))
			os.Exit(1)
		}
		if v := secret["EMAIL_FROM"]; v != "" && cfg.Alerting.SourceEmail == "" {
			cfg.Alerting.SourceEmail = v
		}
		if v := secret["SES_REGION"]; v != "" {
			cfg.Alerting.SESRegion = v
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	controller, err := aws.NewController(ctx,
		aws.WithConfig(&awsCfg),
		aws.WithLogger(logger.With("component", "aws-controller")),
		aws.WithSESClient(aws.NewSESClient(awsCfg, cfg.Alerting.SESRegion)))
	if err != nil {
		logger.Error("failed to create AWS controller", slog.Any("error", err))
		os.Exit(1)
	}

	reg := registry.New(registry.WithLogger(logger))
	ruleset := rules.New(cfg,
		rules.WithLogger(logger),
		rules.WithLookup(controller))
	ruleset.RegisterAll(reg)

	app, err := handler.NewBreachHandler(cfg,
		handler.WithLogger(logger),
		handler.WithRegistry(reg),
		handler.WithComposer(notify.New(cfg, notify.WithLogger(logger))),
		handler.WithDelivery(controller))
	if err != nil {
		logger.Error("failed to create handler", slog.Any("error", err))
		os.Exit(1)
	}

	runtime := Runtime{app: app, logger: logger}
	lambda.Start(runtime.handleEvent)
}

func (r *Runtime) handleEvent(ctx context.Context, event models.Event) (models.Response, error) {
	response, err := r.app.Process(ctx, &event)
	r.logger.Info("handled event",
		slog.String("status", string(response.Status)),
		slog.Any("error", err))
	return response, err
}
