package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KinuGra/tosho-2509-back/internal/events"
)

func TestNotificationService_LogsSubscribedEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, zap.New(core)).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventUserRegistered, UserID: "u-1"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventLevelUp, UserID: "u-1", Payload: events.LevelUpPayload{OldLevel: 1, NewLevel: 2}}))

	assert.Equal(t, 1, logs.FilterMessage("UserRegistered").Len())
	assert.Equal(t, 1, logs.FilterMessage("LevelUp").Len())
	assert.Zero(t, logs.FilterMessage("StepCleared").Len())
}
