package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type accessKeyResponse struct {
	AccessKey struct {
		UserName string `json:"userName"`
	} `json:"accessKey"`
}

type userNameRequest struct {
	UserName string `json:"userName"`
}

// AccessKeyCreated always reports new IAM access keys.
func (r *Ruleset) AccessKeyCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response accessKeyResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable CreateAccessKey response", slog.Any("error", err))
	}
	userName := response.AccessKey.UserName
	if userName == "" {
		userName = "Unknown"
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Access key created for user %s", userName)).
		With("key_generated_for", userName)}, nil
}

// AccessKeyDeleted always reports IAM access key deletions.
func (r *Ruleset) AccessKeyDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request userNameRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable DeleteAccessKey request", slog.Any("error", err))
	}
	userName := request.UserName
	if userName == "" {
		userName = "Unknown"
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Access key deleted for user %s", userName)).
		With("key_deleted_for", userName)}, nil
}

type consoleLoginResponse struct {
	ConsoleLogin string `json:"ConsoleLogin"`
}

type consoleLoginAdditional struct {
	MFAUsed string `json:"MFAUsed"`
}

// ConsoleLogin reports root-account logins and successful logins without
// MFA. Assumed-role sessions are skipped because they do not carry MFA
// state directly, and failed login attempts are never reported here.
func (r *Ruleset) ConsoleLogin(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response consoleLoginResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable ConsoleLogin response", slog.Any("error", err))
	}
	additional := consoleLoginAdditional{MFAUsed: "No"}
	if err := event.Detail.DecodeAdditional(&additional); err != nil {
		r.logger.Warn("unreadable ConsoleLogin additional data", slog.Any("error", err))
	}

	identity := event.Detail.UserIdentity
	userType := identity.Type
	userName := identity.UserName
	if userName == "" {
		userName = userType
	}
	sourceIP := event.Detail.SourceIPAddress

	if response.ConsoleLogin == "Failure" || userType == "AssumedRole" {
		return nil, nil
	}
	if additional.MFAUsed != "No" && userType != "Root" {
		return nil, nil
	}

	var title string
	switch {
	case userType == "Root":
		title = fmt.Sprintf("Root user console login, MFA: %s, IP: %s", additional.MFAUsed, sourceIP)
	case additional.MFAUsed == "No":
		title = fmt.Sprintf("Console login without MFA for %s, IP: %s", userName, sourceIP)
	default:
		title = fmt.Sprintf("Console login for %s, MFA: %s, IP: %s", userName, additional.MFAUsed, sourceIP)
	}

	return []models.Violation{models.NewViolation(title).
		With("source_ip_address", sourceIP).
		With("console_login_response", response.ConsoleLogin).
		With("mfa_used", additional.MFAUsed).
		With("user_name", userName)}, nil
}

// UserCreated always reports new IAM users.
func (r *Ruleset) UserCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	return r.userLifecycle(event, "created")
}

// UserDeleted always reports IAM user deletions.
func (r *Ruleset) UserDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	return r.userLifecycle(event, "deleted")
}

func (r *Ruleset) userLifecycle(event *models.Event, action string) ([]models.Violation, error) {
	var request userNameRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable IAM user request", slog.Any("error", err))
	}
	userName := request.UserName
	if userName == "" {
		userName = "Unknown"
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("IAM user %s %s", userName, action)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", userName)}, nil
}
