package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/models"
)

type vpcRequest struct {
	VpcID               string `json:"vpcId"`
	SubnetID            string `json:"subnetId"`
	RouteTableID        string `json:"routeTableId"`
	NetworkACLID        string `json:"networkAclId"`
	AllocationID        string `json:"allocationId"`
	PeeringConnectionID string `json:"vpcPeeringConnectionId"`
	DeleteNatGateway    struct {
		NatGatewayID string `json:"NatGatewayId"`
	} `json:"DeleteNatGatewayRequest"`
	DeleteVpcEndpoints struct {
		VpcEndpointID json.RawMessage `json:"VpcEndpointId"`
	} `json:"DeleteVpcEndpointsRequest"`
}

type vpcResponse struct {
	AllocationID string `json:"allocationId"`
	Vpc          struct {
		VpcID string `json:"vpcId"`
	} `json:"vpc"`
	Subnet struct {
		SubnetID string `json:"subnetId"`
		VpcID    string `json:"vpcId"`
		TagSet   struct {
			Items []struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"items"`
		} `json:"tagSet"`
	} `json:"subnet"`
	RouteTable struct {
		RouteTableID string `json:"routeTableId"`
		VpcID        string `json:"vpcId"`
	} `json:"routeTable"`
	NetworkACL struct {
		NetworkACLID string `json:"networkAclId"`
		VpcID        string `json:"vpcId"`
	} `json:"networkAcl"`
	PeeringConnection struct {
		PeeringConnectionID string `json:"vpcPeeringConnectionId"`
	} `json:"vpcPeeringConnection"`
	CreateNatGatewayResponse struct {
		NatGateway struct {
			NatGatewayID string `json:"natGatewayId"`
			SubnetID     string `json:"subnetId"`
			VpcID        string `json:"vpcId"`
		} `json:"natGateway"`
	} `json:"CreateNatGatewayResponse"`
}

// VpcCreated reports VPC creation. New VPCs are rare enough in managed
// accounts that every one warrants eyes.
func (r *Ruleset) VpcCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("VPC %s created", response.Vpc.VpcID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", response.Vpc.VpcID)}, nil
}

// VpcDeleted reports VPC deletion.
func (r *Ruleset) VpcDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("VPC %s deleted", request.VpcID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", request.VpcID)}, nil
}

// SubnetCreated reports subnet creation, preferring the Name tag over
// the subnet id in the title when one is set.
func (r *Ruleset) SubnetCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	var name string
	for _, tag := range response.Subnet.TagSet.Items {
		if tag.Key == "Name" {
			name = tag.Value
			break
		}
	}
	label := name
	if label == "" {
		label = response.Subnet.SubnetID
	}
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Subnet %s created", label)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("vpc_id", response.Subnet.VpcID).
		With("subnet_name", name)}, nil
}

// SubnetDeleted reports subnet deletion.
func (r *Ruleset) SubnetDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Subnet %s deleted", request.SubnetID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("subnet_id", request.SubnetID)}, nil
}

// NatGatewayCreated reports NAT gateway creation. The EC2 API nests the
// payload under a CreateNatGatewayResponse wrapper.
func (r *Ruleset) NatGatewayCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	gateway := response.CreateNatGatewayResponse.NatGateway
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("NAT Gateway %s created in subnet %s", gateway.NatGatewayID, gateway.SubnetID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("nat_gateway_id", gateway.NatGatewayID).
		With("subnet_id", gateway.SubnetID).
		With("vpc_id", gateway.VpcID)}, nil
}

// NatGatewayDeleted reports NAT gateway deletion.
func (r *Ruleset) NatGatewayDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	gatewayID := request.DeleteNatGateway.NatGatewayID
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("NAT Gateway %s deleted", gatewayID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("nat_gateway_id", gatewayID)}, nil
}

// RouteTableCreated reports route table creation.
func (r *Ruleset) RouteTableCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	table := response.RouteTable
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Route table %s created in VPC %s", table.RouteTableID, table.VpcID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("vpc_id", table.VpcID).
		With("route_table_id", table.RouteTableID)}, nil
}

// RouteTableDeleted reports route table deletion.
func (r *Ruleset) RouteTableDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Route table %s deleted", request.RouteTableID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("route_table_id", request.RouteTableID)}, nil
}

// NetworkACLCreated reports network ACL creation.
func (r *Ruleset) NetworkACLCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	acl := response.NetworkACL
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Network ACL %s created in VPC %s", acl.NetworkACLID, acl.VpcID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("vpc_id", acl.VpcID).
		With("nacl_id", acl.NetworkACLID)}, nil
}

// NetworkACLDeleted reports network ACL deletion.
func (r *Ruleset) NetworkACLDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Network ACL %s deleted", request.NetworkACLID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("nacl_id", request.NetworkACLID)}, nil
}

// ElasticIPAllocated reports Elastic IP allocation.
func (r *Ruleset) ElasticIPAllocated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Elastic IP %s allocated", response.AllocationID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("allocation_id", response.AllocationID)}, nil
}

// ElasticIPReleased reports Elastic IP release.
func (r *Ruleset) ElasticIPReleased(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("Elastic IP %s released", request.AllocationID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("allocation_id", request.AllocationID)}, nil
}

// VpcPeeringCreated reports peering connection creation.
func (r *Ruleset) VpcPeeringCreated(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	response := r.vpcResponse(event)
	peeringID := response.PeeringConnection.PeeringConnectionID
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("VPC peering connection %s created", peeringID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", peeringID)}, nil
}

// VpcPeeringDeleted reports peering connection deletion.
func (r *Ruleset) VpcPeeringDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("VPC peering connection %s deleted", request.PeeringConnectionID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("resource_name", request.PeeringConnectionID)}, nil
}

// VpcEndpointsDeleted reports endpoint deletion. CloudTrail records the
// endpoint id either as a plain string or wrapped in {"content": id}.
func (r *Ruleset) VpcEndpointsDeleted(ctx context.Context, event *models.Event) ([]models.Violation, error) {
	request := r.vpcRequest(event)
	endpointID := flexibleString(request.DeleteVpcEndpoints.VpcEndpointID)
	return []models.Violation{models.NewViolation(
		fmt.Sprintf("VPC endpoint %s deleted", endpointID)).
		With("source_ip_address", event.Detail.SourceIPAddress).
		With("event_source", event.Detail.EventSource).
		With("event_name", event.Detail.EventName).
		With("vpc_endpoint_id", endpointID)}, nil
}

func (r *Ruleset) vpcRequest(event *models.Event) vpcRequest {
	var request vpcRequest
	if err := event.Detail.DecodeRequest(&request); err != nil {
		r.logger.Warn("unreadable VPC request", slog.Any("error", err))
	}
	return request
}

func (r *Ruleset) vpcResponse(event *models.Event) vpcResponse {
	var response vpcResponse
	if err := event.Detail.DecodeResponse(&response); err != nil {
		r.logger.Warn("unreadable VPC response", slog.Any("error", err))
	}
	return response
}

func flexibleString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var wrapped struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Content
	}
	return ""
}
