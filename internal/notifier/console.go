package notifier

import (
	"context"
	"log"

	"github.com/good-yellow-bee/tagwatch/internal/alerting"
)

// ConsoleNotifier writes alarm notifications to the process log. It is
// always safe to register and doubles as the development channel.
type ConsoleNotifier struct{}

// NewConsoleNotifier creates a console notifier.
func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

// Name returns "console".
func (c *ConsoleNotifier) Name() string {
	return "console"
}

// Send logs the alarm notification.
func (c *ConsoleNotifier) Send(_ context.Context, event *alerting.NotificationEvent) error {
	log.Printf("ALARM [%s] sensor=%s rule=%d: %s",
		event.Type, event.SensorName, event.RuleID, event.Message)
	return nil
}

// Cancel logs the retraction.
func (c *ConsoleNotifier) Cancel(_ context.Context, notificationID int64) error {
	log.Printf("ALARM cancelled: notification=%d", notificationID)
	return nil
}

// Close is a no-op.
func (c *ConsoleNotifier) Close() error {
	return nil
}
