// Package aws provides the Controller struct that wraps the AWS SDK and
// exposes the read-only cloud lookups, transport secret resolution and SES
// delivery used by the alerting engine.
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go/logging"
	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/pkg/errors"
)

// EC2API is the slice of the EC2 client used by the cloud lookups.
type EC2API interface {
	DescribeRouteTables(ctx context.Context, params *ec2.DescribeRouteTablesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DescribeNetworkInterfaces(ctx context.Context, params *ec2.DescribeNetworkInterfacesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error)
}

// SESAPI is the slice of the SES v2 client used by the delivery adapter.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SecretsAPI is the slice of the Secrets Manager client used for transport
// credential resolution.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NetworkInterfaceInfo is the subset of a described network interface the
// rules need to classify ownership and placement.
type NetworkInterfaceInfo struct {
	RequesterID   string
	Description   string
	InterfaceType string
	SubnetID      string
	VpcID         string
	InstanceID    string
}

// Controller wraps the AWS service clients with context and logging
// support. All EC2 operations are read-only; the only write anywhere is
// the outbound SES send.
type Controller struct {
	logger *slog.Logger

	config        *aws.Config
	ec2Client     EC2API
	sesClient     SESAPI
	secretsClient SecretsAPI
}

// Option defines a function type used to configure an instance of the Controller struct.
type Option func(*Controller)

// WithLogger sets a custom slog.Logger instance for the Controller.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithConfig sets a pre-loaded AWS configuration on the Controller.
func WithConfig(cfg *aws.Config) Option {
	return func(c *Controller) {
		c.config = cfg
	}
}

// WithEC2Client overrides the EC2 client. Used by tests.
func WithEC2Client(client EC2API) Option {
	return func(c *Controller) {
		c.ec2Client = client
	}
}

// WithSESClient overrides the SES client. Used by tests.
func WithSESClient(client SESAPI) Option {
	return func(c *Controller) {
		c.sesClient = client
	}
}

// WithSecretsClient overrides the Secrets Manager client. Used by tests.
func WithSecretsClient(client SecretsAPI) Option {
	return func(c *Controller) {
		c.secretsClient = client
	}
}

// NewController initializes a Controller with customizable options and
// default clients where unspecified.
func NewController(ctx context.Context, opts ...Option) (*Controller, error) {
	_inst := &Controller{}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "aws")
	if _inst.config == nil {
		_inst.logger.Debug("loading default AWS configuration...")
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS configuration")
		}
		cfg.Logger = newAWSLogger(_inst.logger)
		_inst.config = &cfg
	}
	if _inst.ec2Client == nil {
		_inst.ec2Client = ec2.NewFromConfig(*_inst.config)
	}
	if _inst.sesClient == nil {
		_inst.sesClient = sesv2.NewFromConfig(*_inst.config)
	}
	if _inst.secretsClient == nil {
		_inst.secretsClient = secretsmanager.NewFromConfig(*_inst.config)
	}
	return _inst, nil
}

// NewSESClient builds a SES v2 client from the given configuration,
// pinned to region when non-empty. The transport secret may place SES in
// a different region than the runtime.
func NewSESClient(cfg aws.Config, region string) *sesv2.Client {
	return sesv2.NewFromConfig(cfg, func(o *sesv2.Options) {
		if region != "" {
			o.Region = region
		}
	})
}

// NewSecretsClient builds a Secrets Manager client from the given
// configuration, pinned to region when non-empty.
func NewSecretsClient(cfg aws.Config, region string) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if region != "" {
			o.Region = region
		}
	})
}

// IsSubnetPublic reports whether the subnet's route table carries a
// default route (0.0.0.0/0 or ::/0) to an internet gateway. Repeated
// calls with an unchanged route table return the same answer.
func (c *Controller) IsSubnetPublic(ctx context.Context, subnetID string) (bool, error) {
	c.logger.Debug("checking subnet exposure...", slog.String("subnetId", subnetID))
	out, err := c.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("association.subnet-id"), Values: []string{subnetID}},
		},
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to describe route tables for subnet %s", subnetID)
	}
	for _, table := range out.RouteTables {
		for _, route := range table.Routes {
			gateway := helpers.String(route.GatewayId)
			if !strings.HasPrefix(gateway, "igw-") {
				continue
			}
			if helpers.String(route.DestinationCidrBlock) == "0.0.0.0/0" ||
				helpers.String(route.DestinationIpv6CidrBlock) == "::/0" {
				return true, nil
			}
		}
	}
	return false, nil
}

// SecurityGroupPublicAccess reports whether any rule of the security group
// opens a non-whitelisted port to the world, and which directions are
// affected ("Ingress", "Egress").
func (c *Controller) SecurityGroupPublicAccess(ctx context.Context, groupID string, ingressWhitelist, egressWhitelist []int32) (bool, []string, error) {
	c.logger.Debug("checking security group exposure...", slog.String("groupId", groupID))
	out, err := c.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		return false, nil, errors.Wrapf(err, "failed to describe security group %s", groupID)
	}
	if len(out.SecurityGroups) == 0 {
		return false, nil, nil
	}
	group := out.SecurityGroups[0]

	var directions []string
	for _, permission := range group.IpPermissions {
		if permissionIsPublic(permission, ingressWhitelist) {
			directions = append(directions, "Ingress")
			break
		}
	}
	for _, permission := range group.IpPermissionsEgress {
		if permissionIsPublic(permission, egressWhitelist) {
			directions = append(directions, "Egress")
			break
		}
	}
	return len(directions) > 0, directions, nil
}

// NetworkInterface describes a single network interface.
func (c *Controller) NetworkInterface(ctx context.Context, interfaceID string) (*NetworkInterfaceInfo, error) {
	out, err := c.ec2Client.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
		NetworkInterfaceIds: []string{interfaceID},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to describe network interface %s", interfaceID)
	}
	if len(out.NetworkInterfaces) == 0 {
		return nil, errors.Errorf("network interface %s not found", interfaceID)
	}
	eni := out.NetworkInterfaces[0]
	info := &NetworkInterfaceInfo{
		RequesterID:   helpers.String(eni.RequesterId),
		Description:   helpers.String(eni.Description),
		InterfaceType: string(eni.InterfaceType),
		SubnetID:      helpers.String(eni.SubnetId),
		VpcID:         helpers.String(eni.VpcId),
	}
	if eni.Attachment != nil {
		info.InstanceID = helpers.String(eni.Attachment.InstanceId)
	}
	return info, nil
}

// ResolveTransportSecret fetches the named Secrets Manager secret and
// decodes its JSON payload into a flat string map.
func (c *Controller) ResolveTransportSecret(ctx context.Context, name string) (map[string]string, error) {
	c.logger.With("secret", name).Debug("fetching transport secret...")
	out, err := c.secretsClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to retrieve secret %s", name)
	}
	values := map[string]string{}
	if out.SecretString != nil {
		if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
			return nil, errors.Wrapf(err, "failed to decode secret %s", name)
		}
	}
	return values, nil
}

// Send delivers one HTML alert via SES. Fire-and-forget from the caller's
// perspective: there is no idempotency key and no internal retry.
func (c *Controller) Send(ctx context.Context, subject, htmlBody string, from string, recipients []string) error {
	c.logger.Debug("sending alert email...", slog.Int("recipients", len(recipients)))
	out, err := c.sesClient.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &sestypes.Destination{
			ToAddresses: recipients,
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &sestypes.Body{
					Html: &sestypes.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to send alert email")
	}
	c.logger.Info("alert email sent", slog.String("messageId", helpers.String(out.MessageId)))
	return nil
}

func permissionIsPublic(permission ec2types.IpPermission, whitelist []int32) bool {
	if helpers.String(permission.IpProtocol) != "-1" {
		fromPort := int32(0)
		if permission.FromPort != nil {
			fromPort = *permission.FromPort
		}
		for _, port := range whitelist {
			if fromPort == port {
				return false
			}
		}
	}
	for _, ipRange := range permission.IpRanges {
		if helpers.String(ipRange.CidrIp) == "0.0.0.0/0" {
			return true
		}
	}
	for _, ipv6Range := range permission.Ipv6Ranges {
		if helpers.String(ipv6Range.CidrIpv6) == "::/0" {
			return true
		}
	}
	return false
}

type awsLogger struct {
	logger *slog.Logger
}

func newAWSLogger(logger *slog.Logger) *awsLogger {
	return &awsLogger{logger}
}

func (a *awsLogger) Logf(classification logging.Classification, format string, args ...any) {
	a.logger.Debug(fmt.Sprintf("[%v] %s", classification, fmt.Sprintf(format, args...)))
}
