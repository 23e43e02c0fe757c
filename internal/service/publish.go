package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/events"
)

// publish fires event and logs handler failures; callers never fail because of them.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
