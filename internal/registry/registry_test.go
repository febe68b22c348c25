package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsvector/breach-alert-app/internal/models"
	"github.com/opsvector/breach-alert-app/internal/registry"
)

func TestDispatchUnregistered(t *testing.T) {
	reg := registry.New()
	event := &models.Event{Detail: models.Detail{EventName: "DescribeInstances"}}

	violations, handled, err := reg.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, violations)
}

func TestDispatchRegistered(t *testing.T) {
	reg := registry.New()
	reg.Register("StopLogging", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return []models.Violation{models.NewViolation("stopped")}, nil
	})
	event := &models.Event{Detail: models.Detail{EventName: "StopLogging"}}

	violations, handled, err := reg.Dispatch(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, violations, 1)
	assert.Equal(t, "stopped", violations[0].Title)
}

func TestRegisterLastWins(t *testing.T) {
	reg := registry.New()
	reg.Register("CreateUser", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return []models.Violation{models.NewViolation("first")}, nil
	})
	reg.Register("CreateUser", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return []models.Violation{models.NewViolation("second")}, nil
	})

	assert.Equal(t, 1, reg.Len())
	violations, handled, err := reg.Dispatch(context.Background(),
		&models.Event{Detail: models.Detail{EventName: "CreateUser"}})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, violations, 1)
	assert.Equal(t, "second", violations[0].Title)
}

func TestHandles(t *testing.T) {
	reg := registry.New()
	reg.Register("DeleteTrail", func(_ context.Context, _ *models.Event) ([]models.Violation, error) {
		return nil, nil
	})

	assert.True(t, reg.Handles("DeleteTrail"))
	assert.False(t, reg.Handles("DescribeTrails"))
}
