package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type kmsRequest struct {
	KeyID               string `json:"keyId"`
	AliasName           string `json:"aliasName"`
	PendingWindowInDays *int   `json:"pendingWindowInDays"`
}

// KeyDeletionScheduled unconditionally reports a key entering its
// deletion window.
func (r *Ruleset) KeyDeletionScheduled(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.kmsRequest(event)
	keyID := orUnknown(request.KeyID)
	pending := "Unknown"
	if request.PendingWindowInDays != nil {
		pending = fmt.Sprintf("%d", *request.PendingWindowInDays)
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("KMS key %s scheduled for deletion in %s days", keyID, pending)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", keyID).
		With("resource_value", fmt.Sprintf("Pending deletion: %s days", pending))}, nil
}

// KeyDisabled unconditionally reports a key being disabled.
func (r *Ruleset) KeyDisabled(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.kmsRequest(event)
	keyID := orUnknown(request.KeyID)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("KMS key %s disabled", keyID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", keyID).
		With("resource_value", "Key disabled")}, nil
}

// KeyAliasDeleted unconditionally reports alias deletion.
func (r *Ruleset) KeyAliasDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.kmsRequest(event)
	alias := orUnknown(request.AliasName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("KMS alias %s deleted", alias)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", alias).
		With("resource_value", "Alias deleted")}, nil
}

// KeyDeletionCancelled reports a key pulled back from its deletion
// window. Informational, but still worth a record.
func (r *Ruleset) KeyDeletionCancelled(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.kmsRequest(event)
	keyID := orUnknown(request.KeyID)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("KMS key %s deletion cancelled (restored)", keyID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", keyID).
		With("resource_value", "Deletion cancelled")}, nil
}

func (r *Ruleset) kmsRequest(event *models.Event) kmsRequest {
	var request kmsRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable KMS request", slog.Any("error", err))
	}
	return request
}
