package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type securityGroupRequest struct {
	GroupID       string               `json:"groupId"`
	GroupName     string               `json:"groupName"`
	IPPermissions itemList[permission] `json:"ipPermissions"`
}

type permission struct {
	IPProtocol string              `json:"ipProtocol"`
	FromPort   *int                `json:"fromPort"`
	ToPort     *int                `json:"toPort"`
	IPRanges   itemList[ipv4Range] `json:"ipRanges"`
	IPv6Ranges itemList[ipv6Range] `json:"ipv6Ranges"`
}

type ipv4Range struct {
	CIDRIP string `json:"cidrIp"`
}

type ipv6Range struct {
	CIDRIPv6 string `json:"cidrIpv6"`
}

// SecurityGroupIngress reports inbound rules opened to the world on
// non-whitelisted ports.
func (r *Ruleset) SecurityGroupIngress(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	return r.securityGroupRules(event, r.cfg.Rules.IngressWhitelist, "Inbound")
}

// SecurityGroupEgress reports outbound rules opened to the world on
// non-whitelisted ports.
func (r *Ruleset) SecurityGroupEgress(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	return r.securityGroupRules(event, r.cfg.Rules.EgressWhitelist, "Outbound")
}

func (r *Ruleset) securityGroupRules(event *models.Event, whitelist []int32, direction string) ([]models.Violation, error) {
	var request securityGroupRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable security group request, skipping", slog.Any("error", err))
		return nil, nil
	}

	groupID := request.GroupID
	if groupID == "" {
		groupID = request.GroupName
	}
	if groupID == "" {
		r.logger.Warn("no security group identifier found, skipping")
		return nil, nil
	}

	var violations []models.Violation
	for _, rule := range request.IPPermissions.Items {
		for _, ipRange := range rule.IPRanges.Items {
			if ipRange.CIDRIP == publicIPv4CIDR {
				if v, ok := publicRuleViolation(groupID, rule, publicIPv4CIDR, whitelist, direction); ok {
					violations = append(violations, v)
				}
			}
		}
		for _, ipRange := range rule.IPv6Ranges.Items {
			if ipRange.CIDRIPv6 == publicIPv6CIDR {
				if v, ok := publicRuleViolation(groupID, rule, publicIPv6CIDR, whitelist, direction); ok {
					violations = append(violations, v)
				}
			}
		}
	}
	return violations, nil
}

// publicRuleViolation builds the violation for a world-open rule unless
// the affected port is whitelisted. Protocol "-1" means all protocols,
// covers the full port range and is never whitelisted.
func publicRuleViolation(groupID string, rule permission, cidr string, whitelist []int32, direction string) (models.Violation, bool) {
	fromPort, toPort := 0, 65535
	if rule.IPProtocol != "-1" {
		if rule.FromPort != nil {
			fromPort = *rule.FromPort
		}
		if rule.ToPort != nil {
			toPort = *rule.ToPort
		}
		for _, port := range whitelist {
			if toPort == int(port) {
				return models.Violation{}, false
			}
		}
	}
	title := fmt.Sprintf("SG %s Port %d-%d opened for %s in %s", direction, fromPort, toPort, cidr, groupID)
	return models.NewViolation(title).
		With("resource_id", groupID).
		WithInt("from_port", fromPort).
		WithInt("to_port", toPort).
		With("ip_range", cidr), true
}
