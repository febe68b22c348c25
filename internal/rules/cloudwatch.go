package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type logsRequest struct {
	LogGroupName    string   `json:"logGroupName"`
	LogStreamName   string   `json:"logStreamName"`
	FilterName      string   `json:"filterName"`
	AlarmNames      []string `json:"alarmNames"`
	RetentionInDays *int     `json:"retentionInDays"`
}

// LogGroupDeleted unconditionally reports log group deletion.
func (r *Ruleset) LogGroupDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	group := orUnknown(request.LogGroupName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("CloudWatch log group '%s' deleted - logs lost", group)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", group).
		With("resource_value", "Log group deleted")}, nil
}

// LogStreamDeleted unconditionally reports log stream deletion.
func (r *Ruleset) LogStreamDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	group := orUnknown(request.LogGroupName)
	stream := orUnknown(request.LogStreamName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("CloudWatch log stream '%s' deleted from group '%s'", stream, group)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", stream).
		With("resource_value", fmt.Sprintf("Log group: %s", group))}, nil
}

// AlarmsDeleted reports each deleted alarm named in the request.
func (r *Ruleset) AlarmsDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	var violations []models.Violation
	for _, alarm := range request.AlarmNames {
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("CloudWatch alarm '%s' deleted - monitoring disabled", alarm)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", alarm).
			With("resource_value", "Alarm deleted"))
	}
	return violations, nil
}

// AlarmActionsDisabled reports each alarm whose actions were disabled.
func (r *Ruleset) AlarmActionsDisabled(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	var violations []models.Violation
	for _, alarm := range request.AlarmNames {
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("CloudWatch alarm actions disabled for '%s' - alerts stopped", alarm)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", alarm).
			With("resource_value", "Actions disabled"))
	}
	return violations, nil
}

// MetricFilterDeleted unconditionally reports metric filter deletion.
func (r *Ruleset) MetricFilterDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	filter := orUnknown(request.FilterName)
	group := orUnknown(request.LogGroupName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("CloudWatch metric filter '%s' deleted from log group '%s'", filter, group)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", filter).
		With("resource_value", fmt.Sprintf("Log group: %s", group))}, nil
}

// SubscriptionFilterDeleted unconditionally reports subscription filter
// deletion.
func (r *Ruleset) SubscriptionFilterDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	filter := orUnknown(request.FilterName)
	group := orUnknown(request.LogGroupName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("CloudWatch subscription filter '%s' deleted from log group '%s'", filter, group)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", filter).
		With("resource_value", fmt.Sprintf("Log group: %s", group))}, nil
}

// RetentionReduced reports retention policies set below the configured
// floor. Raising retention, or clearing it without a value, stays
// silent.
func (r *Ruleset) RetentionReduced(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.logsRequest(event)
	if request.RetentionInDays == nil || *request.RetentionInDays >= r.cfg.Rules.MinLogRetentionDays {
		return nil, nil
	}
	days := *request.RetentionInDays
	group := orUnknown(request.LogGroupName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("CloudWatch log retention reduced to %d days for '%s'", days, group)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", group).
		With("resource_value", fmt.Sprintf("Retention: %d days", days))}, nil
}

func (r *Ruleset) logsRequest(event *models.Event) logsRequest {
	var request logsRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable CloudWatch request", slog.Any("error", err))
	}
	return request
}
