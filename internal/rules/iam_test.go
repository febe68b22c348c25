package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsvector/breach-alert-app/internal/models"
)

func TestConsoleLogin(t *testing.T) {
	testCases := []struct {
		Name          string
		Identity      models.UserIdentity
		Response      string
		Additional    string
		ExpectedTitle string
	}{
		{
			Name:          "root_login_with_mfa_still_reported",
			Identity:      models.UserIdentity{Type: "Root"},
			Response:      `{"ConsoleLogin":"Success"}`,
			Additional:    `{"MFAUsed":"Yes"}`,
			ExpectedTitle: "Root user console login, MFA: Yes, IP: 198.51.100.7",
		},
		{
			Name:          "iam_user_without_mfa",
			Identity:      models.UserIdentity{Type: "IAMUser", UserName: "alice"},
			Response:      `{"ConsoleLogin":"Success"}`,
			Additional:    `{"MFAUsed":"No"}`,
			ExpectedTitle: "Console login without MFA for alice, IP: 198.51.100.7",
		},
		{
			Name:       "iam_user_with_mfa_skipped",
			Identity:   models.UserIdentity{Type: "IAMUser", UserName: "alice"},
			Response:   `{"ConsoleLogin":"Success"}`,
			Additional: `{"MFAUsed":"Yes"}`,
		},
		{
			Name:       "failed_login_skipped",
			Identity:   models.UserIdentity{Type: "IAMUser", UserName: "alice"},
			Response:   `{"ConsoleLogin":"Failure"}`,
			Additional: `{"MFAUsed":"No"}`,
		},
		{
			Name:       "assumed_role_skipped",
			Identity:   models.UserIdentity{Type: "AssumedRole"},
			Response:   `{"ConsoleLogin":"Success"}`,
			Additional: `{"MFAUsed":"No"}`,
		},
		{
			Name:          "missing_additional_data_defaults_to_no_mfa",
			Identity:      models.UserIdentity{Type: "IAMUser", UserName: "bob"},
			Response:      `{"ConsoleLogin":"Success"}`,
			ExpectedTitle: "Console login without MFA for bob, IP: 198.51.100.7",
		},
	}

	ruleset := newRuleset(t)
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			event := newEvent("ConsoleLogin", "", tc.Response, tc.Additional)
			event.Detail.UserIdentity = tc.Identity

			violations, err := ruleset.ConsoleLogin(context.Background(), event)
			require.NoError(t, err)
			if tc.ExpectedTitle == "" {
				assert.Empty(t, violations)
				return
			}
			require.Len(t, violations, 1)
			assert.Equal(t, tc.ExpectedTitle, violations[0].Title)
		})
	}
}

func TestAccessKeyLifecycle(t *testing.T) {
	ruleset := newRuleset(t)

	violations, err := ruleset.AccessKeyCreated(context.Background(),
		newEvent("CreateAccessKey", "", `{"accessKey":{"userName":"alice"}}`, ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Access key created for user alice", violations[0].Title)

	violations, err = ruleset.AccessKeyDeleted(context.Background(),
		newEvent("DeleteAccessKey", `{"userName":"bob"}`, "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Access key deleted for user bob", violations[0].Title)
}

func TestUserLifecycle(t *testing.T) {
	ruleset := newRuleset(t)

	violations, err := ruleset.UserCreated(context.Background(),
		newEvent("CreateUser", `{"userName":"carol"}`, "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "IAM user carol created", violations[0].Title)
	assert.Equal(t, []models.Attribute{
		{Name: "source_ip_address", Value: "198.51.100.7"},
		{Name: "event_source", Value: "test.amazonaws.com"},
		{Name: "event_name", Value: "CreateUser"},
		{Name: "resource_name", Value: "carol"},
	}, violations[0].Attributes)

	violations, err = ruleset.UserDeleted(context.Background(),
		newEvent("DeleteUser", "", "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "IAM user Unknown deleted", violations[0].Title)
}
