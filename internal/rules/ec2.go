package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type runInstancesResponse struct {
	InstancesSet itemList[launchedInstance] `json:"instancesSet"`
}

type launchedInstance struct {
	InstanceID string `json:"instanceId"`
	SubnetID   string `json:"subnetId"`
}

// InstanceInPublicSubnet reports EC2 instances launched into a subnet
// with a default route to an internet gateway.
func (r *Ruleset) InstanceInPublicSubnet(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response runInstancesResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable RunInstances response, skipping", slog.Any("error", err))
		return nil, nil
	}

	var violations []models.Violation
	for _, instance := range response.InstancesSet.Items {
		if instance.InstanceID == "" || instance.SubnetID == "" {
			continue
		}
		if !r.subnetPublic(ctx, instance.SubnetID) {
			continue
		}
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("EC2 instance %s launched in public subnet %s", instance.InstanceID, instance.SubnetID)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", instance.InstanceID).
			With("resource_value", instance.SubnetID))
	}
	return violations, nil
}

type snapshotAttributeRequest struct {
	SnapshotID             string           `json:"snapshotId"`
	CreateVolumePermission permissionChange `json:"createVolumePermission"`
	ImageID                string           `json:"imageId"`
	LaunchPermission       permissionChange `json:"launchPermission"`
}

type permissionChange struct {
	Add itemList[permissionGrant] `json:"add"`
}

type permissionGrant struct {
	Group  string `json:"group"`
	UserID string `json:"userId"`
}

// SnapshotShared reports EBS snapshots shared publicly or with another
// account via ModifySnapshotAttribute.
func (r *Ruleset) SnapshotShared(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request snapshotAttributeRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable ModifySnapshotAttribute request, skipping", slog.Any("error", err))
		return nil, nil
	}

	var violations []models.Violation
	for _, grant := range request.CreateVolumePermission.Add.Items {
		if grant.Group != "all" && grant.UserID == "" {
			continue
		}
		target := grant.Group
		if target == "" {
			target = grant.UserID
		}
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("EC2 snapshot %s shared with %s", request.SnapshotID, target)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", request.SnapshotID).
			With("resource_value", target))
	}
	return violations, nil
}

// ImageShared reports AMIs shared with other accounts via
// ModifyImageAttribute.
func (r *Ruleset) ImageShared(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request snapshotAttributeRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable ModifyImageAttribute request, skipping", slog.Any("error", err))
		return nil, nil
	}

	var violations []models.Violation
	for _, grant := range request.LaunchPermission.Add.Items {
		if grant.UserID == "" {
			continue
		}
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("EC2 AMI %s shared with account %s", request.ImageID, grant.UserID)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", request.ImageID).
			With("resource_value", grant.UserID))
	}
	return violations, nil
}

type createSecurityGroupResponse struct {
	GroupID string `json:"groupId"`
}

// NewSecurityGroupPublic reports newly created security groups that
// already carry world-open rules.
func (r *Ruleset) NewSecurityGroupPublic(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response createSecurityGroupResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable CreateSecurityGroup response, skipping", slog.Any("error", err))
		return nil, nil
	}
	if response.GroupID == "" {
		return nil, nil
	}

	public, directions, err := r.lookup.SecurityGroupPublicAccess(ctx, response.GroupID,
		r.cfg.Rules.IngressWhitelist, r.cfg.Rules.EgressWhitelist)
	if err != nil {
		r.logger.Warn("security group lookup failed, assuming closed",
			slog.String("groupId", response.GroupID), slog.Any("error", err))
		return nil, nil
	}
	if !public {
		return nil, nil
	}

	description := fmt.Sprintf("Internet allowed in %s", strings.Join(directions, " and "))
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Public security group %s created: %s", response.GroupID, description)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", response.GroupID).
		With("resource_value", description)}, nil
}
