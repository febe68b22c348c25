package helpers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsvector/breach-alert-app/internal/helpers"
)

func TestLabelize(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Expected string
	}{
		{
			Name:     "snake_case",
			Input:    "ip_range",
			Expected: "Ip Range",
		},
		{
			Name:     "camel_case",
			Input:    "natGatewayId",
			Expected: "Nat Gateway Id",
		},
		{
			Name:     "single_word",
			Input:    "user",
			Expected: "User",
		},
		{
			Name:     "empty",
			Input:    "",
			Expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.Labelize(tc.Input))
		})
	}
}

func TestSplitList(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Expected []string
	}{
		{
			Name:     "plain_list",
			Input:    "a@x.com,b@x.com",
			Expected: []string{"a@x.com", "b@x.com"},
		},
		{
			Name:     "whitespace_and_empties",
			Input:    " a@x.com , ,b@x.com,",
			Expected: []string{"a@x.com", "b@x.com"},
		},
		{
			Name:     "empty_input",
			Input:    "",
			Expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.SplitList(tc.Input))
		})
	}
}

func TestContainsFold(t *testing.T) {
	assert.True(t, helpers.ContainsFold("amazon-elb", "ELB"))
	assert.False(t, helpers.ContainsFold("ec2-instance", "lambda"))
}
