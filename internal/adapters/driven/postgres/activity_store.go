package postgres

import (
	"context"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ActivityStore = (*ActivityStore)(nil)

// ActivityStore implements driven.ActivityStore using PostgreSQL. Rows are never updated.
type ActivityStore struct {
	db *DB
}

// NewActivityStore creates a new ActivityStore
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Append records an activity
func (s *ActivityStore) Append(ctx context.Context, a *domain.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, project_id, task_id, actor_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.ProjectID, a.TaskID, a.ActorID, string(a.Kind), a.Message, a.CreatedAt)
	return err
}

// ListByTask returns a task's activity, newest first
func (s *ActivityStore) ListByTask(ctx context.Context, taskID string, limit int) ([]*domain.Activity, error) {
	return s.list(ctx, "task_id", taskID, limit)
}

// ListByProject returns a project's activity, newest first
func (s *ActivityStore) ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.Activity, error) {
	return s.list(ctx, "project_id", projectID, limit)
}

func (s *ActivityStore) list(ctx context.Context, column, value string, limit int) ([]*domain.Activity, error) {
	query := `
		SELECT id, project_id, task_id, actor_id, kind, message, created_at
		FROM activities
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{value}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]*domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.TaskID, &a.ActorID, &a.Kind, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}
