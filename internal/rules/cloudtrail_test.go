package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailTampered(t *testing.T) {
	testCases := []struct {
		Name          string
		EventName     string
		Request       string
		ExpectedTitle string
	}{
		{
			Name:          "stop_logging",
			EventName:     "StopLogging",
			Request:       `{"name":"org-trail"}`,
			ExpectedTitle: "CloudTrail logging stopped for org-trail",
		},
		{
			Name:          "delete_trail",
			EventName:     "DeleteTrail",
			Request:       `{"name":"org-trail"}`,
			ExpectedTitle: "CloudTrail org-trail deleted",
		},
		{
			Name:          "missing_trail_name",
			EventName:     "StopLogging",
			Request:       "",
			ExpectedTitle: "CloudTrail logging stopped for Unknown",
		},
	}

	ruleset := newRuleset(t)
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			violations, err := ruleset.TrailTampered(context.Background(),
				newEvent(tc.EventName, tc.Request, "", ""))
			require.NoError(t, err)
			require.Len(t, violations, 1)
			assert.Equal(t, tc.ExpectedTitle, violations[0].Title)
		})
	}
}
