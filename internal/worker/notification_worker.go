package worker

import (
	"context"

	"github.com/relaydesk/ticket-relay/internal/service"
)

// StartNotificationWorker subscribes the notification handlers and starts the
// ping workers. They stop when ctx is cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, workers int) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	go notificationService.Run(ctx, workers)
}
