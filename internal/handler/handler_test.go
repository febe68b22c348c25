package handler_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsvector/breach-alert-app/internal/config"
	"github.com/opsvector/breach-alert-app/internal/handler"
	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/registry"
	"github.com/opsvector/breach-alert-app/internal/rules"
)

type recordingDelivery struct {
	calls    int
	subjects []string
	bodies   []string
	to       [][]string
	err      error
}

func (d *recordingDelivery) Send(_ context.Context, subject, htmlBody string, _ string, recipients []string) error {
	d.calls++
	d.subjects = append(d.subjects, subject)
	d.bodies = append(d.bodies, htmlBody)
	d.to = append(d.to, recipients)
	return d.err
}

func newHandler(t *testing.T, reg *registry.Registry, delivery handler.Delivery) *handler.Handler {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Account.Label = "prod-account"
	cfg.Alerting.SourceEmail = "alerts@example.com"
	cfg.Alerting.Recipients = []string{"secops@example.com"}

	app, err := handler.NewBreachHandler(cfg,
		handler.WithRegistry(reg),
		handler.WithDelivery(delivery))
	require.NoError(t, err)
	return app
}

func newLoginEvent() *models.Event {
	return &models.Event{
		ID:   "evt-1",
		Time: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Detail: models.Detail{
			EventName: "ConsoleLogin",
			AWSRegion: "eu-west-1",
			UserIdentity: models.UserIdentity{
				Type:      "IAMUser",
				ARN:       "arn:aws:iam::123456789012:user/alice",
				AccountID: "123456789012",
			},
		},
	}
}

func TestProcessDelivered(t *testing.T) {
	reg := registry.New()
	reg.Register("ConsoleLogin", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return []models.Violation{
			models.NewViolation("Console login without MFA for alice, IP: 198.51.100.7").
				With("user_name", "alice"),
		}, nil
	})
	delivery := &recordingDelivery{}
	app := newHandler(t, reg, delivery)

	response, err := app.Process(context.Background(), newLoginEvent())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, response.Status)
	assert.Equal(t, 200, response.StatusCode)
	require.Equal(t, 1, delivery.calls)
	assert.Equal(t, "AWS Security Breach | ConsoleLogin | prod-account | 123456789012", delivery.subjects[0])
	assert.Equal(t, []string{"secops@example.com", "alice"}, delivery.to[0])
}

func TestProcessDeliveredPublicIngress(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Account.Label = "prod-account"
	cfg.Alerting.SourceEmail = "alerts@example.com"
	cfg.Alerting.Recipients = []string{"secops@example.com"}

	// full pipeline: real registry, ruleset and composer
	reg := registry.New()
	rules.New(cfg).RegisterAll(reg)
	delivery := &recordingDelivery{}
	app, err := handler.NewBreachHandler(cfg,
		handler.WithRegistry(reg),
		handler.WithDelivery(delivery))
	require.NoError(t, err)

	event := &models.Event{
		ID:   "evt-2",
		Time: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Detail: models.Detail{
			EventName:       "AuthorizeSecurityGroupIngress",
			EventSource:     "ec2.amazonaws.com",
			AWSRegion:       "eu-west-1",
			SourceIPAddress: "198.51.100.7",
			UserIdentity: models.UserIdentity{
				Type:      "IAMUser",
				ARN:       "arn:aws:iam::123456789012:user/alice",
				AccountID: "123456789012",
			},
			RequestParameters: json.RawMessage(`{"groupId":"sg-1234","ipPermissions":{"items":[
				{"ipProtocol":"tcp","fromPort":3389,"toPort":3389,"ipRanges":{"items":[{"cidrIp":"0.0.0.0/0"}]}}
			]}}`),
		},
	}

	response, err := app.Process(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, response.Status)
	require.Equal(t, 1, delivery.calls)
	assert.Equal(t, "AWS Security Breach | AuthorizeSecurityGroupIngress | prod-account | 123456789012", delivery.subjects[0])
	assert.Equal(t, []string{"secops@example.com", "alice"}, delivery.to[0])

	body := delivery.bodies[0]
	assert.Contains(t, body, "SG Inbound Port 3389-3389 opened for 0.0.0.0/0 in sg-1234")
	assert.Contains(t, body, "Resource Details")
	assert.Contains(t, body, "Ip Range")
	assert.Contains(t, body, "0.0.0.0/0")
	assert.Contains(t, body, "prod-account")
}

func TestProcessSkippedUnregistered(t *testing.T) {
	delivery := &recordingDelivery{}
	app := newHandler(t, registry.New(), delivery)

	event := newLoginEvent()
	event.Detail.EventName = "DescribeInstances"
	response, err := app.Process(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, response.Status)
	assert.Zero(t, delivery.calls)
}

func TestProcessSkippedNoViolations(t *testing.T) {
	reg := registry.New()
	reg.Register("ConsoleLogin", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return nil, nil
	})
	delivery := &recordingDelivery{}
	app := newHandler(t, reg, delivery)

	response, err := app.Process(context.Background(), newLoginEvent())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, response.Status)
	assert.Zero(t, delivery.calls)
}

func TestProcessRejectedMissingEventName(t *testing.T) {
	delivery := &recordingDelivery{}
	app := newHandler(t, registry.New(), delivery)

	response, err := app.Process(context.Background(), &models.Event{ID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, response.Status)
	assert.Equal(t, 400, response.StatusCode)
	assert.Zero(t, delivery.calls)
}

func TestProcessDeliveryFailed(t *testing.T) {
	reg := registry.New()
	reg.Register("ConsoleLogin", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return []models.Violation{models.NewViolation("finding")}, nil
	})
	delivery := &recordingDelivery{err: errors.New("quota exceeded")}
	app := newHandler(t, reg, delivery)

	response, err := app.Process(context.Background(), newLoginEvent())
	require.Error(t, err)
	assert.Equal(t, models.StatusDeliveryFailed, response.Status)
	assert.Equal(t, 500, response.StatusCode)
	assert.Equal(t, 1, delivery.calls)
}

func TestProcessFailedHandlerError(t *testing.T) {
	reg := registry.New()
	reg.Register("ConsoleLogin", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return nil, errors.New("boom")
	})
	delivery := &recordingDelivery{}
	app := newHandler(t, reg, delivery)

	response, err := app.Process(context.Background(), newLoginEvent())
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, response.Status)
	// the fallback alert is the only delivery attempt
	require.Equal(t, 1, delivery.calls)
	assert.Contains(t, delivery.subjects[0], "processing failure")
}
