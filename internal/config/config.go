// Package config provides the application parameters. The configuration
// is constructed once at process start and passed by reference into the
// components that need it; nothing reads it through package-level state.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/opsvector/breach-alert-app/internal/helpers"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration, loaded once per cold start.
type Config struct {
	// Logging configures the slog handler built by cmd.
	Logging struct {
		// Verbosity is added to the base warn level in slog steps.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace enables source locations in log records.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`

	// Account describes the monitored AWS account.
	Account struct {
		// Label is the display name used in alert subjects.
		Label string `yaml:"label,omitempty" default:"Unknown"`
	} `yaml:"account,omitempty"`

	// Alerting configures the outbound notification path.
	Alerting struct {
		// SourceEmail is the SES "from" address. Resolved from the
		// transport secret when empty; a missing value after resolution
		// is a fatal configuration error.
		SourceEmail string `yaml:"sourceEmail,omitempty"`
		// Recipients is the configured alert recipient list. An empty
		// list is a warning, not an error: alerts then reach only the
		// acting user.
		Recipients []string `yaml:"recipients,omitempty"`
		// SESRegion is the region the SES client is built for.
		SESRegion string `yaml:"sesRegion,omitempty" default:"us-east-1"`
		// InfoEvents are operations considered informational rather than
		// breach-level; they get the softer subject prefix.
		InfoEvents []string `yaml:"infoEvents,omitempty" default:"[\"CreateFunction20150331\", \"UpdateFunctionConfiguration20150331v2\", \"UpdateFunctionCode20150331v2\"]"`
	} `yaml:"alerting,omitempty"`

	// Secret locates the Secrets Manager entry holding the transport
	// credentials (EMAIL_FROM, SES_REGION, optional access keys).
	Secret struct {
		Name   string `yaml:"name,omitempty"`
		Region string `yaml:"region,omitempty" default:"us-east-1"`
	} `yaml:"secret,omitempty"`

	// Rules tunes the detection thresholds shared by the rule families.
	Rules struct {
		// IngressWhitelist are inbound ports excluded from the public
		// exposure determination.
		IngressWhitelist []int32 `yaml:"ingressWhitelist,omitempty" default:"[80, 443, 53]"`
		// EgressWhitelist are outbound ports excluded from the public
		// exposure determination.
		EgressWhitelist []int32 `yaml:"egressWhitelist,omitempty" default:"[80, 443, 587]"`
		// MinLogRetentionDays is the retention floor below which a
		// PutRetentionPolicy call is reported.
		MinLogRetentionDays int `yaml:"minLogRetentionDays,omitempty" default:"30"`
		// PrivilegedPolicies are managed policy names whose attachment
		// is always reported.
		PrivilegedPolicies []string `yaml:"privilegedPolicies,omitempty" default:"[\"AdministratorAccess\", \"PowerUserAccess\", \"IAMFullAccess\", \"SecurityAudit\"]"`
		// PrivilegedActions are policy-document actions whose grant is
		// always reported.
		PrivilegedActions []string `yaml:"privilegedActions,omitempty" default:"[\"iam:*\", \"iam:CreateAccessKey\", \"iam:CreateLoginProfile\", \"iam:UpdateAssumeRolePolicy\", \"iam:AttachUserPolicy\", \"iam:AttachRolePolicy\", \"iam:PutUserPolicy\", \"iam:PutRolePolicy\", \"sts:AssumeRole\", \"lambda:CreateFunction\", \"lambda:UpdateFunctionCode\", \"ec2:RunInstances\"]"`
		// LoadBalancerMarkers identify network interfaces owned by load
		// balancers, which are excluded from public exposure reports.
		LoadBalancerMarkers []string `yaml:"loadBalancerMarkers,omitempty" default:"[\"amazon-elb\", \"ELB\", \"elasticloadbalancing\", \"awselb\", \"load-balancer\"]"`
	} `yaml:"rules,omitempty"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set configuration defaults")
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, err
	}
	bindEnv(cfg)
	return cfg, nil
}

// Validate checks the configuration after transport secret resolution. A
// missing source email is fatal; a missing recipient list is reported by
// the caller as a warning.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Alerting.SourceEmail) == "" {
		return errors.New("alerting source email is required")
	}
	return nil
}

func loadFromFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // A missing configuration file is ignored.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read configuration file %s", path)
	}
	return errors.Wrapf(yaml.Unmarshal(data, cfg), "failed to parse configuration file %s", path)
}

func bindEnv(cfg *Config) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	_ = viper.BindEnv("account.label", "ACCOUNT_NAME")
	_ = viper.BindEnv("alerting.recipients", "EMAIL_IDS")
	_ = viper.BindEnv("alerting.source_email", "EMAIL_FROM")
	_ = viper.BindEnv("secret.name", "SECRET_NAME")
	_ = viper.BindEnv("secret.region", "SECRET_REGION")

	if v := viper.GetString("account.label"); v != "" {
		cfg.Account.Label = v
	}
	if v := viper.GetString("alerting.recipients"); v != "" {
		cfg.Alerting.Recipients = helpers.SplitList(v)
	}
	if v := viper.GetString("alerting.source_email"); v != "" {
		cfg.Alerting.SourceEmail = v
	}
	if v := viper.GetString("secret.name"); v != "" {
		cfg.Secret.Name = v
	}
	if v := viper.GetString("secret.region"); v != "" {
		cfg.Secret.Region = v
	}
}
