package aws_test

import (
	"context"
	"encoding/json"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsvector/breach-alert-app/internal/controllers/aws"
)

type mockEC2 struct {
	routeTables []ec2types.RouteTable
	groups      []ec2types.SecurityGroup
	interfaces  []ec2types.NetworkInterface
}

func (m *mockEC2) DescribeRouteTables(_ context.Context, _ *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	return &ec2.DescribeRouteTablesOutput{RouteTables: m.routeTables}, nil
}

func (m *mockEC2) DescribeSecurityGroups(_ context.Context, _ *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: m.groups}, nil
}

func (m *mockEC2) DescribeNetworkInterfaces(_ context.Context, _ *ec2.DescribeNetworkInterfacesInput, _ ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error) {
	return &ec2.DescribeNetworkInterfacesOutput{NetworkInterfaces: m.interfaces}, nil
}

type mockSES struct {
	inputs []*sesv2.SendEmailInput
}

func (m *mockSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.inputs = append(m.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: awssdk.String("msg-1")}, nil
}

type mockSecrets struct {
	payload map[string]string
}

func (m *mockSecrets) GetSecretValue(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	data, _ := json.Marshal(m.payload)
	return &secretsmanager.GetSecretValueOutput{SecretString: awssdk.String(string(data))}, nil
}

func newController(t *testing.T, opts ...aws.Option) *aws.Controller {
	t.Helper()
	opts = append(opts, aws.WithConfig(&awssdk.Config{}))
	controller, err := aws.NewController(context.Background(), opts...)
	require.NoError(t, err)
	return controller
}

func TestIsSubnetPublic(t *testing.T) {
	testCases := []struct {
		Name     string
		Routes   []ec2types.Route
		Expected bool
	}{
		{
			Name: "default_route_to_igw",
			Routes: []ec2types.Route{
				{GatewayId: awssdk.String("igw-1"), DestinationCidrBlock: awssdk.String("0.0.0.0/0")},
			},
			Expected: true,
		},
		{
			Name: "ipv6_default_route_to_igw",
			Routes: []ec2types.Route{
				{GatewayId: awssdk.String("igw-1"), DestinationIpv6CidrBlock: awssdk.String("::/0")},
			},
			Expected: true,
		},
		{
			Name: "default_route_to_nat",
			Routes: []ec2types.Route{
				{GatewayId: awssdk.String("nat-1"), DestinationCidrBlock: awssdk.String("0.0.0.0/0")},
			},
			Expected: false,
		},
		{
			Name: "local_route_only",
			Routes: []ec2types.Route{
				{GatewayId: awssdk.String("local"), DestinationCidrBlock: awssdk.String("10.0.0.0/16")},
			},
			Expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			controller := newController(t, aws.WithEC2Client(&mockEC2{
				routeTables: []ec2types.RouteTable{{Routes: tc.Routes}},
			}))

			// repeated calls with an unchanged route table agree
			for i := 0; i < 2; i++ {
				public, err := controller.IsSubnetPublic(context.Background(), "subnet-1")
				require.NoError(t, err)
				assert.Equal(t, tc.Expected, public)
			}
		})
	}
}

func TestSecurityGroupPublicAccess(t *testing.T) {
	controller := newController(t, aws.WithEC2Client(&mockEC2{
		groups: []ec2types.SecurityGroup{{
			IpPermissions: []ec2types.IpPermission{{
				IpProtocol: awssdk.String("tcp"),
				FromPort:   awssdk.Int32(22),
				ToPort:     awssdk.Int32(22),
				IpRanges:   []ec2types.IpRange{{CidrIp: awssdk.String("0.0.0.0/0")}},
			}},
			IpPermissionsEgress: []ec2types.IpPermission{{
				IpProtocol: awssdk.String("tcp"),
				FromPort:   awssdk.Int32(443),
				ToPort:     awssdk.Int32(443),
				IpRanges:   []ec2types.IpRange{{CidrIp: awssdk.String("0.0.0.0/0")}},
			}},
		}},
	}))

	public, directions, err := controller.SecurityGroupPublicAccess(context.Background(), "sg-1",
		[]int32{80, 443, 53}, []int32{80, 443, 587})
	require.NoError(t, err)
	assert.True(t, public)
	// egress 443 is whitelisted, only ingress trips
	assert.Equal(t, []string{"Ingress"}, directions)
}

func TestResolveTransportSecret(t *testing.T) {
	controller := newController(t, aws.WithSecretsClient(&mockSecrets{
		payload: map[string]string{"EMAIL_FROM": "alerts@example.com", "SES_REGION": "eu-west-1"},
	}))

	values, err := controller.ResolveTransportSecret(context.Background(), "alerting/transport")
	require.NoError(t, err)
	assert.Equal(t, "alerts@example.com", values["EMAIL_FROM"])
	assert.Equal(t, "eu-west-1", values["SES_REGION"])
}

func TestNewSESClientRegion(t *testing.T) {
	cfg := awssdk.Config{Region: "us-east-1"}

	pinned := aws.NewSESClient(cfg, "eu-west-1")
	assert.Equal(t, "eu-west-1", pinned.Options().Region)

	inherited := aws.NewSESClient(cfg, "")
	assert.Equal(t, "us-east-1", inherited.Options().Region)
}

func TestNewSecretsClientRegion(t *testing.T) {
	cfg := awssdk.Config{Region: "us-east-1"}

	pinned := aws.NewSecretsClient(cfg, "eu-central-1")
	assert.Equal(t, "eu-central-1", pinned.Options().Region)

	inherited := aws.NewSecretsClient(cfg, "")
	assert.Equal(t, "us-east-1", inherited.Options().Region)
}

func TestSend(t *testing.T) {
	ses := &mockSES{}
	controller := newController(t, aws.WithSESClient(ses))

	err := controller.Send(context.Background(), "subject", "<html></html>",
		"alerts@example.com", []string{"secops@example.com"})
	require.NoError(t, err)
	require.Len(t, ses.inputs, 1)
	input := ses.inputs[0]
	assert.Equal(t, "alerts@example.com", *input.FromEmailAddress)
	assert.Equal(t, []string{"secops@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, "subject", *input.Content.Simple.Subject.Data)
}
