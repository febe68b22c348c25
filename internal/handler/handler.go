// Package handler drives a single breach-notification invocation from
// raw event to terminal status.
package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/opsvector/breach-alert-app/internal/config"
	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/notify"
	"github.com/opsvector/breach-alert-app/internal/registry"
)

// Delivery is the transport used to send rendered notifications.
type Delivery interface {
	Send(ctx context.Context, subject, htmlBody string, from string, recipients []string) error
}

// Handler classifies one event and, when violations are found, composes
// and delivers an alert. Invocations are independent; the handler keeps
// no mutable state between them.
type Handler struct {
	logger   *slog.Logger
	cfg      *config.Config
	registry *registry.Registry
	composer *notify.Composer
	delivery Delivery
}

// NewBreachHandler wires up the classification and delivery pipeline.
// The registry, composer and delivery transport are required.
func NewBreachHandler(cfg *config.Config, options ...Option) (*Handler, error) {
	_inst := &Handler{
		logger: helpers.NewNoopLogger(),
		cfg:    cfg,
	}
	for _, opt := range options {
		opt(_inst)
	}

	if _inst.registry == nil {
		return nil, errors.New("no event registry configured")
	}
	if _inst.delivery == nil {
		return nil, errors.New("no delivery transport configured")
	}
	if _inst.composer == nil {
		_inst.composer = notify.New(cfg, notify.WithLogger(_inst.logger))
	}

	_inst.logger = _inst.logger.With("component", "handler")

	return _inst, nil
}

// Process runs the full pipeline for one event and always returns a
// terminal status. The error return carries the underlying cause for
// DeliveryFailed and Failed outcomes; the invoking platform decides
// whether to redeliver.
func (h *Handler) Process(ctx context.Context, event *models.Event) (models.Response, error) {
	logger := h.logger

	if event == nil || event.Detail.EventName == "" {
		logger.Error("event is missing detail.eventName", slog.Any("event", event))
		return models.NewResponse(models.StatusRejected, "missing eventName"), nil
	}

	logger = logger.With(slog.String("eventName", event.Detail.EventName), slog.String("eventId", event.ID))
	logger.Info("processing event")

	violations, handled, err := h.registry.Dispatch(ctx, event)
	if err != nil {
		logger.Error("event classification failed", slog.Any("error", err))
		h.fallbackAlert(ctx, event, err)
		return models.NewResponse(models.StatusFailed, err.Error()), err
	}
	if !handled {
		logger.Debug("no handler registered, skipping")
		return models.NewResponse(models.StatusSkipped, "unhandled event"), nil
	}
	if len(violations) == 0 {
		logger.Info("no violations found, skipping")
		return models.NewResponse(models.StatusSkipped, "no violations"), nil
	}

	logger.Info("violations found", slog.Int("count", len(violations)))

	message, err := h.composer.Compose(event, violations)
	if err != nil {
		logger.Error("composing notification", slog.Any("error", err))
		h.fallbackAlert(ctx, event, err)
		return models.NewResponse(models.StatusFailed, err.Error()), err
	}

	recipients := h.composer.Recipients(event)
	if err = h.delivery.Send(ctx, message.Subject, message.HTMLBody, h.cfg.Alerting.SourceEmail, recipients); err != nil {
		logger.Error("delivering notification",
			slog.Any("error", err),
			slog.String("subject", message.Subject),
			slog.Any("recipients", recipients))
		return models.NewResponse(models.StatusDeliveryFailed, err.Error()), err
	}

	logger.Info("notification delivered", slog.String("subject", message.Subject))
	return models.NewResponse(models.StatusDelivered, "notification sent"), nil
}

// fallbackAlert tries to tell someone that processing itself broke. It
// may fail silently; the primary status already records the failure.
func (h *Handler) fallbackAlert(ctx context.Context, event *models.Event, cause error) {
	subject := fmt.Sprintf("AWS Security Breach | processing failure | %s | %s",
		h.cfg.Account.Label, event.Account)
	body := fmt.Sprintf("<html><body><p>Failed to process event %s (%s): %s</p></body></html>",
		event.ID, event.Detail.EventName, cause)
	if err := h.delivery.Send(ctx, subject, body, h.cfg.Alerting.SourceEmail, h.cfg.Alerting.Recipients); err != nil {
		h.logger.Warn("fallback alert failed", slog.Any("error", err))
	}
}
