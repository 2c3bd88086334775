package worker

import (
	"github.com/spec-kit/claim-approval-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to approval events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
