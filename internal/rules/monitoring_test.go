package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionReduced(t *testing.T) {
	testCases := []struct {
		Name          string
		Request       string
		ExpectedTitle string
	}{
		{
			Name:          "below_floor",
			Request:       `{"logGroupName":"/app/api","retentionInDays":7}`,
			ExpectedTitle: "CloudWatch log retention reduced to 7 days for '/app/api'",
		},
		{
			Name:    "at_floor",
			Request: `{"logGroupName":"/app/api","retentionInDays":30}`,
		},
		{
			Name:    "above_floor",
			Request: `{"logGroupName":"/app/api","retentionInDays":365}`,
		},
		{
			Name:    "retention_cleared",
			Request: `{"logGroupName":"/app/api"}`,
		},
	}

	ruleset := newRuleset(t)
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			violations, err := ruleset.RetentionReduced(context.Background(),
				newEvent("PutRetentionPolicy", tc.Request, "", ""))
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

func TestAlarmsDeleted(t *testing.T) {
	ruleset := newRuleset(t)

	violations, err := ruleset.AlarmsDeleted(context.Background(),
		newEvent("DeleteAlarms", `{"alarmNames":["cpu-high","disk-full"]}`, "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, "CloudWatch alarm 'cpu-high' deleted - monitoring disabled", violations[0].Title)
	assert.Equal(t, "CloudWatch alarm 'disk-full' deleted - monitoring disabled", violations[1].Title)

	violations, err = ruleset.AlarmsDeleted(context.Background(),
		newEvent("DeleteAlarms", `{"alarmNames":[]}`, "", ""))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestConfigRuleChanged(t *testing.T) {
	ruleset := newRuleset(t)

	violations, err := ruleset.ConfigRuleChanged(context.Background(),
		newEvent("PutConfigRule",
			`{"configRule":{"configRuleName":"s3-encryption","configRuleState":"DELETING"}}`, "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "AWS Config rule 's3-encryption' set to state: DELETING", violations[0].Title)

	violations, err = ruleset.ConfigRuleChanged(context.Background(),
		newEvent("PutConfigRule",
			`{"configRule":{"configRuleName":"s3-encryption","configRuleState":"ACTIVE"}}`, "", ""))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestKeyDeletionScheduled(t *testing.T) {
	ruleset := newRuleset(t)

	violations, err := ruleset.KeyDeletionScheduled(context.Background(),
		newEvent("ScheduleKeyDeletion", `{"keyId":"key-1","pendingWindowInDays":7}`, "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "KMS key key-1 scheduled for deletion in 7 days", violations[0].Title)
}

func TestConfigRecorderDeleted(t *testing.T) {
	ruleset := newRuleset(t)

	violations, err := ruleset.ConfigRecorderDeleted(context.Background(),
		newEvent("DeleteConfigurationRecorder", `{"configurationRecorderName":"default"}`, "", ""))
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "AWS Config recorder 'default' deleted - compliance monitoring disabled", violations[0].Title)
}
