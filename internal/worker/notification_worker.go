package worker

import (
	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/service"
)

// StartNotificationWorker attaches learner notifications to the event dispatcher.
// Handlers run inline with Publish, so there is no goroutine to stop.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	subscribed := notifications.RegisterHandlers()

	names := make([]string, 0, len(subscribed))
	for _, eventType := range subscribed {
		names = append(names, string(eventType))
	}
	logger.Info("notification worker started", zap.Strings("events", names))
}
