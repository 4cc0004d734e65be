package services

import (
	"context"
	"time"
)

// notificationDeliveryTimeout bounds one event's trip through the sinks.
const notificationDeliveryTimeout = 30 * time.Second

// deliveryContext keeps the request's values but not its cancellation, and
// gives delivery its own deadline so a hung SMTP or Redis call cannot stall
// the notification worker.
func deliveryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), notificationDeliveryTimeout)
}
