// Package rules implements the per-event-type extraction logic: one
// handler per monitored CloudTrail operation, each returning zero or more
// violations describing the offending resource.
package rules

import (
	"context"
	"log/slog"

	"github.com/opsvector/breach-alert-app/internal/config"
	"github.com/opsvector/breach-alert-app/internal/controllers/aws"
	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/opsvector/breach-alert-app/internal/registry"
)

// Public CIDR blocks that mark a rule as world-reachable.
const (
	publicIPv4CIDR = "0.0.0.0/0"
	publicIPv6CIDR = "::/0"
)

// CloudLookup is the read-only query surface the rules use to decide
// whether a resource is exposed. Lookups never mutate anything; a lookup
// failure is logged and treated as "not a violation" by the rule, except
// where noted.
type CloudLookup interface {
	IsSubnetPublic(ctx context.Context, subnetID string) (bool, error)
	SecurityGroupPublicAccess(ctx context.Context, groupID string, ingressWhitelist, egressWhitelist []int32) (bool, []string, error)
	NetworkInterface(ctx context.Context, interfaceID string) (*aws.NetworkInterfaceInfo, error)
}

// Option is a function that applies an option to a Ruleset.
type Option func(*Ruleset)

// Ruleset holds the dependencies shared by the rule families.
type Ruleset struct {
	logger *slog.Logger
	lookup CloudLookup
	cfg    *config.Config
}

// WithLogger sets a custom slog.Logger instance for the Ruleset.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ruleset) {
		r.logger = logger
	}
}

// WithLookup sets the cloud lookup implementation.
func WithLookup(lookup CloudLookup) Option {
	return func(r *Ruleset) {
		r.lookup = lookup
	}
}

// New creates a Ruleset bound to the given configuration.
func New(cfg *config.Config, opts ...Option) *Ruleset {
	_inst := &Ruleset{cfg: cfg}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "rules")
	return _inst
}

// RegisterAll enumerates every monitored event name and its handler in one
// place. The table below is the complete routing surface of the engine.
func (r *Ruleset) RegisterAll(reg *registry.Registry) {
	// Security groups
	reg.Register("AuthorizeSecurityGroupIngress", r.SecurityGroupIngress)
	reg.Register("AuthorizeSecurityGroupEgress", r.SecurityGroupEgress)

	// EC2 exposure
	reg.Register("RunInstances", r.InstanceInPublicSubnet)
	reg.Register("ModifySnapshotAttribute", r.SnapshotShared)
	reg.Register("ModifyImageAttribute", r.ImageShared)
	reg.Register("CreateSecurityGroup", r.NewSecurityGroupPublic)

	// RDS and load balancers
	reg.Register("CreateDBInstance", r.DBInstanceInPublicSubnet)
	reg.Register("ModifyDBSnapshotAttribute", r.DBSnapshotShared)
	reg.Register("ModifyDBClusterSnapshotAttribute", r.DBSnapshotShared)
	reg.Register("CreateLoadBalancer", r.LoadBalancerInPublicSubnet)

	// Network interfaces
	reg.Register("CreateNetworkInterface", r.NetworkInterfaceInPublicSubnet)
	reg.Register("AssociateAddress", r.ElasticIPAssociated)
	reg.Register("ModifyNetworkInterfaceAttribute", r.NetworkInterfaceModified)

	// IAM identity
	reg.Register("CreateAccessKey", r.AccessKeyCreated)
	reg.Register("DeleteAccessKey", r.AccessKeyDeleted)
	reg.Register("ConsoleLogin", r.ConsoleLogin)
	reg.Register("CreateUser", r.UserCreated)
	reg.Register("DeleteUser", r.UserDeleted)

	// IAM policy
	reg.Register("PutUserPolicy", r.InlineUserPolicy)
	reg.Register("AttachUserPolicy", r.ManagedPolicyAttached)

	// S3
	reg.Register("PutBucketAcl", r.BucketACLChanged)
	reg.Register("PutBucketPublicAccessBlock", r.BucketPublicAccessBlockChanged)

	// CloudTrail tampering
	reg.Register("StopLogging", r.TrailTampered)
	reg.Register("DeleteTrail", r.TrailTampered)

	// AWS Config tampering
	reg.Register("DeleteConfigurationRecorder", r.ConfigRecorderDeleted)
	reg.Register("StopConfigurationRecorder", r.ConfigRecorderStopped)
	reg.Register("DeleteDeliveryChannel", r.ConfigDeliveryChannelDeleted)
	reg.Register("DeleteConfigRule", r.ConfigRuleDeleted)
	reg.Register("DeleteAggregationAuthorization", r.ConfigAggregationAuthDeleted)
	reg.Register("DeleteConfigurationAggregator", r.ConfigAggregatorDeleted)
	reg.Register("DeleteRemediationConfiguration", r.ConfigRemediationDeleted)
	reg.Register("PutConfigRule", r.ConfigRuleChanged)

	// CloudWatch tampering
	reg.Register("DeleteLogGroup", r.LogGroupDeleted)
	reg.Register("DeleteLogStream", r.LogStreamDeleted)
	reg.Register("DeleteAlarms", r.AlarmsDeleted)
	reg.Register("DisableAlarmActions", r.AlarmActionsDisabled)
	reg.Register("DeleteMetricFilter", r.MetricFilterDeleted)
	reg.Register("DeleteSubscriptionFilter", r.SubscriptionFilterDeleted)
	reg.Register("PutRetentionPolicy", r.RetentionReduced)

	// KMS
	reg.Register("ScheduleKeyDeletion", r.KeyDeletionScheduled)
	reg.Register("DisableKey", r.KeyDisabled)
	reg.Register("DeleteAlias", r.KeyAliasDeleted)
	reg.Register("CancelKeyDeletion", r.KeyDeletionCancelled)

	// VPC lifecycle
	reg.Register("CreateVpc", r.VpcCreated)
	reg.Register("DeleteVpc", r.VpcDeleted)
	reg.Register("CreateSubnet", r.SubnetCreated)
	reg.Register("DeleteSubnet", r.SubnetDeleted)
	reg.Register("CreateNatGateway", r.NatGatewayCreated)
	reg.Register("DeleteNatGateway", r.NatGatewayDeleted)
	reg.Register("CreateRouteTable", r.RouteTableCreated)
	reg.Register("DeleteRouteTable", r.RouteTableDeleted)
	reg.Register("CreateNetworkAcl", r.NetworkACLCreated)
	reg.Register("DeleteNetworkAcl", r.NetworkACLDeleted)
	reg.Register("AllocateAddress", r.ElasticIPAllocated)
	reg.Register("ReleaseAddress", r.ElasticIPReleased)
	reg.Register("CreateVpcPeeringConnection", r.VpcPeeringCreated)
	reg.Register("DeleteVpcPeeringConnection", r.VpcPeeringDeleted)
	reg.Register("DeleteVpcEndpoints", r.VpcEndpointsDeleted)

	// Route53
	reg.Register("DeleteHostedZone", r.HostedZoneDeleted)
	reg.Register("ChangeResourceRecordSets", r.RecordSetChanged)

	// Data protection
	reg.Register("DeleteSecret", r.SecretDeleted)
	reg.Register("DeleteBackupPlan", r.BackupPlanDeleted)
	reg.Register("DeleteBackupVault", r.BackupVaultDeleted)
	reg.Register("CreateRepository", r.ECRRepositoryCreated)
}

// itemList mirrors the CloudTrail convention of wrapping repeated elements
// in an object with an "items" array.
type itemList[T any] struct {
	Items []T `json:"items"`
}

// subnetPublic wraps the lookup with the shared failure policy: a failed
// lookup is logged and treated as "not public" so an unrelated API outage
// never aborts the invocation.
func (r *Ruleset) subnetPublic(ctx context.Context, subnetID string) bool {
	public, err := r.lookup.IsSubnetPublic(ctx, subnetID)
	if err != nil {
		r.logger.Warn("subnet exposure lookup failed, assuming private",
			slog.String("subnetId", subnetID), slog.Any("error", err))
		return false
	}
	return public
}
