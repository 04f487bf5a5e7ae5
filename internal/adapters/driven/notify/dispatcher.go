// Package notify implements the notification dispatcher and the transports
// workers use to deliver notifications.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NotificationDispatcher = (*QueueDispatcher)(nil)

// QueueDispatcher turns each notification into a deliver_notification job.
// Dispatch returns as soon as the job is enqueued.
type QueueDispatcher struct {
	queue driven.JobQueue
}

// NewQueueDispatcher creates a dispatcher backed by queue
func NewQueueDispatcher(queue driven.JobQueue) *QueueDispatcher {
	return &QueueDispatcher{queue: queue}
}

// Dispatch enqueues n for delivery
func (d *QueueDispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("notification is required")
	}
	job, err := domain.NewNotificationJob(n)
	if err != nil {
		return err
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue notification %s: %w", n.ID, err)
	}
	return nil
}
