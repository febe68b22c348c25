package handler

import (
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/notify"
	"github.com/opsvector/breach-alert-app/internal/registry"
)

// Option operates on Handler, enabling pre-initialisation configuration.
type Option func(*Handler)

// WithLogger sets the logger instance for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithRegistry sets the event registry consulted on every invocation.
func WithRegistry(reg *registry.Registry) Option {
	return func(h *Handler) {
		h.registry = reg
	}
}

// WithComposer sets the notification composer.
func WithComposer(composer *notify.Composer) Option {
	return func(h *Handler) {
		h.composer = composer
	}
}

// WithDelivery sets the delivery transport.
func WithDelivery(delivery Delivery) Option {
	return func(h *Handler) {
		h.delivery = delivery
	}
}
