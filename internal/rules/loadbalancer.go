package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type createLoadBalancerRequest struct {
	Name           string          `json:"name"`
	SubnetMappings []subnetMapping `json:"subnetMappings"`
}

type subnetMapping struct {
	SubnetID string `json:"subnetId"`
}

// LoadBalancerInPublicSubnet reports load balancers created in subnets
// reachable from the internet.
func (r *Ruleset) LoadBalancerInPublicSubnet(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request createLoadBalancerRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable CreateLoadBalancer request, skipping", slog.Any("error", err))
		return nil, nil
	}

	var violations []models.Violation
	for _, mapping := range request.SubnetMappings {
		if mapping.SubnetID == "" || !r.subnetPublic(ctx, mapping.SubnetID) {
			continue
		}
		violations = append(violations, models.NewViolation(
			fmt.Sprintf("Public load balancer %s created in subnet %s", request.Name, mapping.SubnetID)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", request.Name).
			With("resource_value", mapping.SubnetID))
	}
	return violations, nil
}
