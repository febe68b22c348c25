package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

// SecretDeleted reports Secrets Manager secret deletion. The API
// accepts either a friendly name or an ARN, so both fields are tried.
func (r *Ruleset) SecretDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request struct {
		Name     string `json:"name"`
		SecretID string `json:"secretId"`
	}
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable Secrets Manager request", slog.Any("error", err))
	}
	name := request.Name
	if name == "" {
		name = request.SecretID
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Secret %s deleted", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name)}, nil
}

// BackupPlanDeleted reports AWS Backup plan deletion.
func (r *Ruleset) BackupPlanDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request struct {
		BackupPlanID string `json:"backupPlanId"`
	}
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable Backup request", slog.Any("error", err))
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Backup plan %s deleted", request.BackupPlanID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("backup_plan_id", request.BackupPlanID)}, nil
}

// BackupVaultDeleted reports AWS Backup vault deletion.
func (r *Ruleset) BackupVaultDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request struct {
		BackupVaultName string `json:"backupVaultName"`
	}
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable Backup request", slog.Any("error", err))
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Backup vault %s deleted", request.BackupVaultName)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("backup_vault_name", request.BackupVaultName)}, nil
}

// ECRRepositoryCreated reports ECR repository creation.
func (r *Ruleset) ECRRepositoryCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response struct {
		Repository struct {
			RepositoryName string `json:"repositoryName"`
		} `json:"repository"`
	}
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable ECR response", slog.Any("error", err))
	}
	name := response.Repository.RepositoryName
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Public ECR repository %s created", name)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("repository_name", name)}, nil
}
