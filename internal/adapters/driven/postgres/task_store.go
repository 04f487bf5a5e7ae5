package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskStore = (*TaskStore)(nil)

const taskColumns = `id, project_id, title, description, attachments, assigned_to, reviewer_id, status,
	created_by, due_date, created_at, updated_at, status_changed_at`

// TaskStore implements driven.TaskStore using PostgreSQL.
// Writes to an existing task carry "AND status = expected" so a concurrent
// transition makes them affect zero rows.
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a new TaskStore
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create inserts a new task
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.ProjectID,
		task.Title,
		task.Description,
		pq.Array(task.Attachments),
		task.AssignedTo,
		task.ReviewerID,
		string(task.Status),
		task.CreatedBy,
		NullTime(task.DueDate),
		task.CreatedAt,
		task.UpdatedAt,
		task.StatusChangedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a task by ID
func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return task, err
}

// List retrieves tasks matching the filter, oldest first
func (s *TaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		where = append(where, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	return s.query(ctx, query, args...)
}

// ListInStatusSince returns tasks that entered status before the cutoff and are still in it
func (s *TaskStore) ListInStatusSince(ctx context.Context, status domain.TaskStatus, before time.Time) ([]*domain.Task, error) {
	return s.query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = $1 AND status_changed_at < $2
		ORDER BY status_changed_at ASC
	`, string(status), before)
}

// UpdateStatus moves a task from expected.Status to next
func (s *TaskStore) UpdateStatus(ctx context.Context, id string, expected domain.TaskGuard, next domain.TaskStatus, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $4, status_changed_at = $5, updated_at = $5
		WHERE id = $1 AND status = $2 AND assigned_to = $3
	`, id, string(expected.Status), expected.AssignedTo, string(next), at)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return s.conditional(ctx, result, id)
}

// UpdateDetails writes the editable fields of task
func (s *TaskStore) UpdateDetails(ctx context.Context, task *domain.Task, expected domain.TaskGuard) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $4, description = $5, attachments = $6, reviewer_id = $7, due_date = $8, updated_at = $9
		WHERE id = $1 AND status = $2 AND assigned_to = $3
	`,
		task.ID,
		string(expected.Status),
		expected.AssignedTo,
		task.Title,
		task.Description,
		pq.Array(task.Attachments),
		task.ReviewerID,
		NullTime(task.DueDate),
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task details: %w", err)
	}
	return s.conditional(ctx, result, task.ID)
}

// UpdateAssignee changes the assignee
func (s *TaskStore) UpdateAssignee(ctx context.Context, id string, expected domain.TaskGuard, assignee string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET assigned_to = $4, updated_at = $5
		WHERE id = $1 AND status = $2 AND assigned_to = $3
	`, id, string(expected.Status), expected.AssignedTo, assignee, at)
	if err != nil {
		return fmt.Errorf("update task assignee: %w", err)
	}
	return s.conditional(ctx, result, id)
}

// Delete removes a task
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// conditional turns a zero-row conditional write into ErrConflict, or
// ErrNotFound when the task no longer exists
func (s *TaskStore) conditional(ctx context.Context, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (s *TaskStore) query(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task    domain.Task
		dueDate sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		pq.Array(&task.Attachments),
		&task.AssignedTo,
		&task.ReviewerID,
		&task.Status,
		&task.CreatedBy,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.StatusChangedAt,
	)
	if err != nil {
		return nil, err
	}
	if task.Attachments == nil {
		task.Attachments = []string{}
	}
	task.DueDate = TimePtr(dueDate)
	return &task, nil
}
