package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type putUserPolicyRequest struct {
	UserName       string `json:"userName"`
	PolicyName     string `json:"policyName"`
	PolicyDocument string `json:"policyDocument"`
}

// InlineUserPolicy reports inline user policies granting wildcard
// permissions or any of the configured privileged actions.
func (r *Ruleset) InlineUserPolicy(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request putUserPolicyRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable PutUserPolicy request, skipping", slog.Any("error", err))
		return nil, nil
	}
	userName := request.UserName
	if userName == "" {
		userName = "Unknown"
	}
	policyName := request.PolicyName
	if policyName == "" {
		policyName = "Unknown"
	}

	var violations []models.Violation
	if strings.Contains(request.PolicyDocument, `"*"`) ||
		strings.Contains(request.PolicyDocument, `"Action": "*"`) {
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("Inline policy '%s' with wildcard permissions attached to user %s", policyName, userName)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", userName).
			With("resource_value", fmt.Sprintf("Policy: %s", policyName)))
	}
	for _, action := range r.cfg.Rules.PrivilegedActions {
		if !strings.Contains(request.PolicyDocument, action) {
			continue
		}
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("Inline policy '%s' with dangerous action '%s' attached to user %s", policyName, action, userName)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", userName).
			With("resource_value", fmt.Sprintf("Policy: %s, Action: %s", policyName, action)))
		break // one report per policy is enough
	}
	return violations, nil
}

type attachUserPolicyRequest struct {
	UserName  string `json:"userName"`
	PolicyARN string `json:"policyArn"`
}

// ManagedPolicyAttached reports attachment of the configured set of
// highly privileged managed policies to a user.
func (r *Ruleset) ManagedPolicyAttached(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request attachUserPolicyRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable AttachUserPolicy request, skipping", slog.Any("error", err))
		return nil, nil
	}
	userName := request.UserName
	if userName == "" {
		userName = "Unknown"
	}

	for _, policy := range r.cfg.Rules.PrivilegedPolicies {
		if !strings.Contains(request.PolicyARN, policy) {
			continue
		}
		return []models.Violation{models.NewViolation(
			fmt.Sprintf("Dangerous managed policy '%s' attached to user %s", policy, userName)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", userName).
			With("resource_value", request.PolicyARN)}, nil
	}
	return nil, nil
}
