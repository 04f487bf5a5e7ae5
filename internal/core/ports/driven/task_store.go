package driven

import (
	"context"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// TaskStore is the system of record for tasks.
//
// Every mutation of an existing task is conditional on the guard (status and
// assignee) the caller read: when the stored task differs the write is skipped
// and ErrConflict is returned, or ErrNotFound if the task is gone. Last write
// never wins.
type TaskStore interface {
	// Create inserts a new task. Returns ErrAlreadyExists on ID collision.
	Create(ctx context.Context, task *domain.Task) error

	// Get retrieves a task by ID
	Get(ctx context.Context, id string) (*domain.Task, error)

	// List retrieves tasks matching the filter, oldest first
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)

	// ListInStatusSince returns tasks that have sat in status since before the cutoff
	ListInStatusSince(ctx context.Context, status domain.TaskStatus, before time.Time) ([]*domain.Task, error)

	// UpdateStatus moves a task from expected.Status to next atomically
	UpdateStatus(ctx context.Context, id string, expected domain.TaskGuard, next domain.TaskStatus, at time.Time) error

	// UpdateDetails writes title, description, attachments, reviewer and due date
	UpdateDetails(ctx context.Context, task *domain.Task, expected domain.TaskGuard) error

	// UpdateAssignee changes the assignee
	UpdateAssignee(ctx context.Context, id string, expected domain.TaskGuard, assignee string, at time.Time) error

	// Delete removes a task
	Delete(ctx context.Context, id string) error
}
