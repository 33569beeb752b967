package worker

import (
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/service"
)

// StartNotificationWorker subscribes the notification stubs to account and
// membership events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
