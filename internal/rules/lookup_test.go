package rules_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opsvector/breach-alert-app/internal/config"
	"github.com/opsvector/breach-alert-app/internal/controllers/aws"
	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/rules"
)

// fakeLookup satisfies rules.CloudLookup with canned answers.
type fakeLookup struct {
	SubnetPublic      func(subnetID string) (bool, error)
	GroupPublicAccess func(groupID string) (bool, []string, error)
	Interface         func(interfaceID string) (*aws.NetworkInterfaceInfo, error)
}

func (f *fakeLookup) IsSubnetPublic(_ context.Context, subnetID string) (bool, error) {
	if f.SubnetPublic == nil {
		return false, nil
	}
	return f.SubnetPublic(subnetID)
}

func (f *fakeLookup) SecurityGroupPublicAccess(_ context.Context, groupID string, _, _ []int32) (bool, []string, error) {
	if f.GroupPublicAccess == nil {
		return false, nil, nil
	}
	return f.GroupPublicAccess(groupID)
}

func (f *fakeLookup) NetworkInterface(_ context.Context, interfaceID string) (*aws.NetworkInterfaceInfo, error) {
	if f.Interface == nil {
		return &aws.NetworkInterfaceInfo{}, nil
	}
	return f.Interface(interfaceID)
}

func newRuleset(t *testing.T, opts ...rules.Option) *rules.Ruleset {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return rules.New(cfg, opts...)
}

func newEvent(name, request, response, additional string) *models.Event {
	event := &models.Event{
		ID: "test-event-id",
		Detail: models.Detail{
			EventName:       name,
			EventSource:     "test.amazonaws.com",
			SourceIPAddress: "198.51.100.7",
		},
	}
	if request != "" {
		event.Detail.RequestParameters = json.RawMessage(request)
	}
	if response != "" {
		event.Detail.ResponseElements = json.RawMessage(response)
	}
	if additional != "" {
		event.Detail.AdditionalEventData = json.RawMessage(additional)
	}
	return event
}
