package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type configServiceRequest struct {
	ConfigurationRecorderName   string `json:"configurationRecorderName"`
	DeliveryChannelName         string `json:"deliveryChannelName"`
	ConfigRuleName              string `json:"configRuleName"`
	AuthorizedAccountID         string `json:"authorizedAccountId"`
	AuthorizedAWSRegion         string `json:"authorizedAwsRegion"`
	ConfigurationAggregatorName string `json:"configurationAggregatorName"`
	ConfigRule                  struct {
		ConfigRuleName  string `json:"configRuleName"`
		ConfigRuleState string `json:"configRuleState"`
	} `json:"configRule"`
}

// ConfigRecorderDeleted unconditionally reports deletion of the AWS
// Config configuration recorder.
func (r *Ruleset) ConfigRecorderDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	name := orUnknown(request.ConfigurationRecorderName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config recorder '%s' deleted - compliance monitoring disabled", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", "Recorder deleted")}, nil
}

// ConfigRecorderStopped unconditionally reports the recorder being
// stopped.
func (r *Ruleset) ConfigRecorderStopped(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	name := orUnknown(request.ConfigurationRecorderName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config recorder '%s' stopped - compliance monitoring paused", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", "Recorder stopped")}, nil
}

// ConfigDeliveryChannelDeleted unconditionally reports delivery channel
// deletion.
func (r *Ruleset) ConfigDeliveryChannelDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	name := orUnknown(request.DeliveryChannelName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config delivery channel '%s' deleted - config data delivery stopped", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", "Delivery channel deleted")}, nil
}

// ConfigRuleDeleted unconditionally reports Config rule deletion.
func (r *Ruleset) ConfigRuleDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	name := orUnknown(request.ConfigRuleName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config rule '%s' deleted - compliance check removed", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", "Config rule deleted")}, nil
}

// ConfigAggregationAuthDeleted unconditionally reports aggregation
// authorization deletion.
func (r *Ruleset) ConfigAggregationAuthDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	account := orUnknown(request.AuthorizedAccountID)
	region := orUnknown(request.AuthorizedAWSRegion)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config aggregation authorization deleted for account %s in %s", account, region)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", account).
		With("resource_value", fmt.Sprintf("Region: %s", region))}, nil
}

// ConfigAggregatorDeleted unconditionally reports aggregator deletion.
func (r *Ruleset) ConfigAggregatorDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	name := orUnknown(request.ConfigurationAggregatorName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config aggregator '%s' deleted - multi-account/region monitoring disabled", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", "Aggregator deleted")}, nil
}

// ConfigRemediationDeleted unconditionally reports remediation
// configuration deletion.
func (r *Ruleset) ConfigRemediationDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	name := orUnknown(request.ConfigRuleName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config remediation configuration deleted for rule '%s'", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", "Auto-remediation disabled")}, nil
}

// ConfigRuleChanged reports Config rules put into a non-active state;
// putting an active rule is routine and stays silent.
func (r *Ruleset) ConfigRuleChanged(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.configRequest(event)
	state := request.ConfigRule.ConfigRuleState
	if state == "" || state == "ACTIVE" {
		return nil, nil
	}
	name := orUnknown(request.ConfigRule.ConfigRuleName)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("AWS Config rule '%s' set to state: %s", name, state)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", fmt.Sprintf("State: %s", state))}, nil
}

func (r *Ruleset) configRequest(event *models.Event) configServiceRequest {
	var request configServiceRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable Config service request", slog.Any("error", err))
	}
	return request
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
