package driven

import (
	"context"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// ActivityStore is the append-only audit log (PostgreSQL)
type ActivityStore interface {
	// Append records an activity
	Append(ctx context.Context, activity *domain.Activity) error

	// ListByTask returns a task's activity, newest first. limit <= 0 means no limit.
	ListByTask(ctx context.Context, taskID string, limit int) ([]*domain.Activity, error)

	// ListByProject returns a project's activity, newest first. limit <= 0 means no limit.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.Activity, error)
}
