package driven

import (
	"context"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// NotificationDispatcher hands a notification off for asynchronous delivery.
// Dispatch returns once the notification is queued; delivery failures and
// retries are the dispatcher's concern, never the caller's.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *domain.Notification) error
}

// NotificationTransport delivers a notification to people (Slack, logs).
// Workers call it when processing deliver_notification jobs.
type NotificationTransport interface {
	// Name identifies the transport in logs and metrics
	Name() string

	// Deliver sends the notification. An error makes the job retry.
	Deliver(ctx context.Context, n *domain.Notification) error
}
