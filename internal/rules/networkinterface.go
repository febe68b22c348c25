package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/opsvector/breach-alert-app/internal/models"
)

type createNetworkInterfaceResponse struct {
	NetworkInterface networkInterfaceDetail `json:"networkInterface"`
}

type networkInterfaceDetail struct {
	NetworkInterfaceID string        `json:"networkInterfaceId"`
	RequesterID        string        `json:"requesterId"`
	Description        string        `json:"description"`
	InterfaceType      string        `json:"interfaceType"`
	SubnetID           string        `json:"subnetId"`
	VpcID              string        `json:"vpcId"`
	AvailabilityZone   string        `json:"availabilityZone"`
	PrivateIPAddress   string        `json:"privateIpAddress"`
	Attachment         eniAttachment `json:"attachment"`
}

type eniAttachment struct {
	InstanceID string `json:"instanceId"`
}

// NetworkInterfaceInPublicSubnet reports network interfaces created in
// public subnets. Interfaces owned by load balancers are excluded.
func (r *Ruleset) NetworkInterfaceInPublicSubnet(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response createNetworkInterfaceResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable CreateNetworkInterface response, skipping", slog.Any("error", err))
		return nil, nil
	}
	eni := response.NetworkInterface
	if eni.NetworkInterfaceID == "" {
		r.logger.Warn("no network interface in response, skipping")
		return nil, nil
	}

	invokedBy := event.Detail.UserIdentity.InvokedBy
	if r.ownedByLoadBalancer(eni.RequesterID, eni.Description, invokedBy, eni.InterfaceType) {
		r.logger.Info("network interface owned by load balancer, skipping",
			slog.String("networkInterfaceId", eni.NetworkInterfaceID))
		return nil, nil
	}
	if !r.subnetPublic(ctx, eni.SubnetID) {
		return nil, nil
	}

	title := fmt.Sprintf("Network interface %s created in public subnet %s", eni.NetworkInterfaceID, eni.SubnetID)
	if eni.Attachment.InstanceID != "" {
		title += fmt.Sprintf(" (attached to instance %s)", eni.Attachment.InstanceID)
	}
	if strings.Contains(invokedBy, "ecs.amazonaws.com") {
		title += " [ECS Service]"
	} else if strings.Contains(invokedBy, "lambda.amazonaws.com") {
		title += " [Lambda Function]"
	}

	return []models.Violation{models.NewViolation(title).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", eni.NetworkInterfaceID).
		With("resource_value", fmt.Sprintf("Private IP: %s, Subnet: %s, VPC: %s, AZ: %s",
			eni.PrivateIPAddress, eni.SubnetID, eni.VpcID, eni.AvailabilityZone))}, nil
}

type associateAddressRequest struct {
	NetworkInterfaceID string `json:"networkInterfaceId"`
	InstanceID         string `json:"instanceId"`
	AllocationID       string `json:"allocationId"`
	PublicIP           string `json:"publicIp"`
}

// ElasticIPAssociated reports Elastic IP associations with instances or
// network interfaces. Load-balancer interfaces are excluded; if the
// describing lookup fails, the association is still reported because the
// exposure itself is certain.
func (r *Ruleset) ElasticIPAssociated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request associateAddressRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable AssociateAddress request, skipping", slog.Any("error", err))
		return nil, nil
	}

	if request.NetworkInterfaceID == "" {
		if request.InstanceID == "" {
			return nil, nil
		}
		return []models.Violation{models.NewViolation(
			fmt.Sprintf("Elastic IP %s associated with instance %s", request.PublicIP, request.InstanceID)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", request.InstanceID).
			With("resource_value", fmt.Sprintf("Elastic IP: %s, Allocation: %s", request.PublicIP, request.AllocationID))}, nil
	}

	eni, err := r.lookup.NetworkInterface(ctx, request.NetworkInterfaceID)
	if err != nil {
		r.logger.Warn("network interface lookup failed, reporting association anyway",
			slog.String("networkInterfaceId", request.NetworkInterfaceID), slog.Any("error", err))
		return []models.Violation{models.NewViolation(
			fmt.Sprintf("Elastic IP %s associated with network interface %s", request.PublicIP, request.NetworkInterfaceID)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", request.NetworkInterfaceID).
			With("resource_value", fmt.Sprintf("Elastic IP: %s, Allocation: %s", request.PublicIP, request.AllocationID))}, nil
	}

	invokedBy := event.Detail.UserIdentity.InvokedBy
	if r.ownedByLoadBalancer(eni.RequesterID, eni.Description, invokedBy, eni.InterfaceType) {
		r.logger.Info("network interface owned by load balancer, skipping",
			slog.String("networkInterfaceId", request.NetworkInterfaceID))
		return nil, nil
	}

	title := fmt.Sprintf("Elastic IP %s associated with network interface %s", request.PublicIP, request.NetworkInterfaceID)
	if eni.InstanceID != "" {
		title += fmt.Sprintf(" (instance %s)", eni.InstanceID)
	}
	return []models.Violation{models.NewViolation(title).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", request.NetworkInterfaceID).
		With("resource_value", fmt.Sprintf("Elastic IP: %s, Subnet: %s, VPC: %s", request.PublicIP, eni.SubnetID, eni.VpcID))}, nil
}

type modifyNetworkInterfaceRequest struct {
	NetworkInterfaceID string               `json:"networkInterfaceId"`
	SourceDestCheck    *boolValue           `json:"sourceDestCheck"`
	GroupSet           *itemList[groupItem] `json:"groupSet"`
}

type boolValue struct {
	Value bool `json:"value"`
}

type groupItem struct {
	GroupID string `json:"groupId"`
}

// NetworkInterfaceModified reports security-relevant attribute changes:
// source/destination check disabled (routing/NAT enabled) and security
// group set replacement.
func (r *Ruleset) NetworkInterfaceModified(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request modifyNetworkInterfaceRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable ModifyNetworkInterfaceAttribute request, skipping", slog.Any("error", err))
		return nil, nil
	}

	var violations []models.Violation
	if request.SourceDestCheck != nil && !request.SourceDestCheck.Value {
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("Network interface %s source/dest check disabled", request.NetworkInterfaceID)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", request.NetworkInterfaceID).
			With("resource_value", "Source/Dest check disabled (NAT/routing enabled)"))
	}
	if request.GroupSet != nil {
		var groupIDs []string
		for _, group := range request.GroupSet.Items {
			if group.GroupID != "" {
				groupIDs = append(groupIDs, group.GroupID)
			}
		}
		if len(groupIDs) > 0 {
			violations = append(violations, models.NewViolation(
				fmt.Sprintf("Network interface %s security groups modified", request.NetworkInterfaceID)).
				With("source_ip_address", event.Detail.SourceIPAddress).
				With("event_source", event.Detail.EventSource).
				With("event_name", event.Detail.EventName).
				With("resource_name", request.NetworkInterfaceID).
				With("resource_value", fmt.Sprintf("Security groups: %s", strings.Join(groupIDs, ", "))))
		}
	}
	return violations, nil
}

// ownedByLoadBalancer matches the known load-balancer identifier
// substrings against the interface's requester, description and invoker
// fields, plus the explicit load-balancer interface types.
func (r *Ruleset) ownedByLoadBalancer(requesterID, description, invokedBy, interfaceType string) bool {
	switch interfaceType {
	case "network_load_balancer", "gateway_load_balancer", "load_balancer":
		return true
	}
	for _, marker := range r.cfg.Rules.LoadBalancerMarkers {
		if helpers.ContainsFold(requesterID, marker) ||
			helpers.ContainsFold(description, marker) ||
			helpers.ContainsFold(invokedBy, marker) {
			return true
		}
	}
	return false
}
