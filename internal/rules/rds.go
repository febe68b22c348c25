package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type createDBInstanceResponse struct {
	DBInstanceIdentifier string        `json:"dBInstanceIdentifier"`
	DBSubnetGroup        dbSubnetGroup `json:"dBSubnetGroup"`
}

type dbSubnetGroup struct {
	DBSubnetGroupName string     `json:"dBSubnetGroupName"`
	Subnets           []dbSubnet `json:"subnets"`
}

type dbSubnet struct {
	SubnetIdentifier string `json:"subnetIdentifier"`
}

// DBInstanceInPublicSubnet reports RDS instances created in a subnet
// group containing at least one public subnet. One violation covers the
// whole subnet group.
func (r *Ruleset) DBInstanceInPublicSubnet(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var response createDBInstanceResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable CreateDBInstance response, skipping", slog.Any("error", err))
		return nil, nil
	}

	for _, subnet := range response.DBSubnetGroup.Subnets {
		if subnet.SubnetIdentifier == "" || !r.subnetPublic(ctx, subnet.SubnetIdentifier) {
			continue
		}
		return []models.Violation{models.NewViolation(
			fmt.Sprintf("RDS instance %s created in public subnet group %s",
				response.DBInstanceIdentifier, response.DBSubnetGroup.DBSubnetGroupName)).
			With("source_ip_address", event.Detail.SourceIPAddress).
			With("event_source", event.Detail.EventSource).
			With("event_name", event.Detail.EventName).
			With("resource_name", response.DBInstanceIdentifier).
			With("resource_value", response.DBSubnetGroup.DBSubnetGroupName)}, nil
	}
	return nil, nil
}

type dbSnapshotAttributeRequest struct {
	DBSnapshotIdentifier        string   `json:"dBSnapshotIdentifier"`
	DBClusterSnapshotIdentifier string   `json:"dBClusterSnapshotIdentifier"`
	AttributeName               string   `json:"attributeName"`
	ValuesToAdd                 []string `json:"valuesToAdd"`
}

// DBSnapshotShared reports RDS snapshots whose restore attribute is
// granted to additional accounts. Covers both ModifyDBSnapshotAttribute
// and ModifyDBClusterSnapshotAttribute.
func (r *Ruleset) DBSnapshotShared(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	var request dbSnapshotAttributeRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable snapshot attribute request, skipping", slog.Any("error", err))
		return nil, nil
	}
	if request.AttributeName != "restore" || len(request.ValuesToAdd) == 0 {
		return nil, nil
	}

	name := request.DBSnapshotIdentifier
	if event.Detail.EventName == "ModifyDBClusterSnapshotAttribute" {
		name = request.DBClusterSnapshotIdentifier
	}
	targets := strings.Join(request.ValuesToAdd, ", ")
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("RDS snapshot %s shared with %s", name, targets)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", name).
		With("resource_value", targets)}, nil
}
