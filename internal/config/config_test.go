package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsvector/breach-alert-app/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "Unknown", cfg.Account.Label)
	assert.Equal(t, "us-east-1", cfg.Alerting.SESRegion)
	assert.Equal(t, []int32{80, 443, 53}, cfg.Rules.IngressWhitelist)
	assert.Equal(t, []int32{80, 443, 587}, cfg.Rules.EgressWhitelist)
	assert.Equal(t, 30, cfg.Rules.MinLogRetentionDays)
	assert.Contains(t, cfg.Rules.PrivilegedPolicies, "AdministratorAccess")
	assert.Contains(t, cfg.Alerting.InfoEvents, "CreateFunction20150331")
	assert.Contains(t, cfg.Rules.LoadBalancerMarkers, "amazon-elb")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account:
  label: prod-account
alerting:
  sourceEmail: alerts@example.com
  recipients:
    - secops@example.com
rules:
  minLogRetentionDays: 90
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod-account", cfg.Account.Label)
	assert.Equal(t, "alerts@example.com", cfg.Alerting.SourceEmail)
	assert.Equal(t, []string{"secops@example.com"}, cfg.Alerting.Recipients)
	assert.Equal(t, 90, cfg.Rules.MinLogRetentionDays)
	// defaults survive a partial file
	assert.Equal(t, []int32{80, 443, 53}, cfg.Rules.IngressWhitelist)
}

func TestLoadMissingFileIgnored(t *testing.T) {
	cfg, err := config.Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", cfg.Account.Label)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.Alerting.SourceEmail = "alerts@example.com"
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNT_NAME", "staging-account")
	t.Setenv("EMAIL_IDS", "a@example.com, b@example.com")
	t.Setenv("EMAIL_FROM", "noreply@example.com")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "staging-account", cfg.Account.Label)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Alerting.Recipients)
	assert.Equal(t, "noreply@example.com", cfg.Alerting.SourceEmail)
}
