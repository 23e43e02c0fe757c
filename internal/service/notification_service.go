package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
	}
}

// RegisterHandlers subscribes to events and returns the event types it now handles.
func (n *NotificationService) RegisterHandlers() []events.EventType {
	if n.dispatcher == nil {
		return nil
	}
	subscriptions := []struct {
		eventType events.EventType
		handler   events.EventHandler
	}{
		{events.EventUserRegistered, n.handleUserRegistered},
		{events.EventCodeVerified, n.handleCodeVerified},
		{events.EventStepCleared, n.handleStepCleared},
		{events.EventLevelUp, n.handleLevelUp},
	}
	subscribed := make([]events.EventType, 0, len(subscriptions))
	for _, sub := range subscriptions {
		n.dispatcher.Subscribe(sub.eventType, sub.handler)
		subscribed = append(subscribed, sub.eventType)
	}
	return subscribed
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID), zap.String("event_id", event.ID))
	return nil
}

func (n *NotificationService) handleCodeVerified(_ context.Context, event events.Event) error {
	n.logger.Info("CodeVerified", zap.String("identity", event.Identity), zap.String("event_id", event.ID))
	return nil
}

func (n *NotificationService) handleStepCleared(_ context.Context, event events.Event) error {
	n.logger.Info("StepCleared", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleLevelUp(_ context.Context, event events.Event) error {
	n.logger.Info("LevelUp", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}
