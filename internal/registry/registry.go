// Package registry maps CloudTrail event names to the rule that inspects
// them. The full set of handled event names is assembled in one place
// (rules.RegisterAll) so the routing table is visible without tracing
// imports.
package registry

import (
	"context"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/opsvector/breach-alert-app/internal/models"
)

// Handler inspects one event and returns the violations it describes. An
// empty slice is the normal "nothing detected" outcome, not an error.
type Handler func(ctx context.Context, event *models.Event) ([]models.Violation, error)

// Option is a function that applies an option to a Registry.
type Option func(*Registry)

// Registry is the static event-name to handler table.
type Registry struct {
	logger   *slog.Logger
	handlers map[string]Handler
}

// WithLogger sets a custom slog.Logger instance for the Registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	_inst := &Registry{handlers: make(map[string]Handler)}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Register adds or replaces the handler for an event name. A later
// registration for the same name wins.
func (r *Registry) Register(eventName string, handler Handler) {
	if _, exists := r.handlers[eventName]; exists {
		r.logger.Debug("replacing handler registration", slog.String("event", eventName))
	}
	r.handlers[eventName] = handler
}

// Handles reports whether a handler is registered for the event name.
func (r *Registry) Handles(eventName string) bool {
	_, ok := r.handlers[eventName]
	return ok
}

// Len returns the number of registered event names.
func (r *Registry) Len() int {
	return len(r.handlers)
}

// Dispatch resolves the event to its handler and invokes it. An
// unregistered event name yields handled=false with no error: most audit
// events are benign and intentionally unhandled. Handler failures
// propagate to the caller unmodified.
func (r *Registry) Dispatch(ctx context.Context, event *models.Event) (violations []models.Violation, handled bool, err error) {
	handler, ok := r.handlers[event.Detail.EventName]
	if !ok {
		return nil, false, nil
	}
	violations, err = handler(ctx, event)
	return violations, true, err
}
