package driving

import (
	"context"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// CreateTaskRequest represents a new task on a project
type CreateTaskRequest struct {
	ProjectID   string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Attachments []string   `json:"attachments,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	ReviewerID  string     `json:"reviewer_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskRequest edits task details. Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Attachments *[]string  `json:"attachments,omitempty"`
	ReviewerID  *string    `json:"reviewer_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// TransitionRequest asks for a status change.
// ExpectedStatus, when set, must match the stored status or ErrConflict is returned.
type TransitionRequest struct {
	To             string `json:"to"`
	ExpectedStatus string `json:"expected_status,omitempty"`
}

// AssignTaskRequest changes a task's assignee
type AssignTaskRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// TaskService runs the task lifecycle. Reads are visibility filtered;
// mutations are checked against the lifecycle policy and written with a
// compare-and-swap on status.
type TaskService interface {
	Create(ctx context.Context, actor *domain.User, req CreateTaskRequest) (*domain.Task, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.Task, error)
	List(ctx context.Context, actor *domain.User, filter domain.TaskFilter) ([]*domain.Task, error)
	Transition(ctx context.Context, actor *domain.User, id string, req TransitionRequest) (*domain.Task, error)
	Update(ctx context.Context, actor *domain.User, id string, req UpdateTaskRequest) (*domain.Task, error)
	Assign(ctx context.Context, actor *domain.User, id string, req AssignTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, actor *domain.User, id string) error

	// Activity returns the task's audit trail, newest first
	Activity(ctx context.Context, actor *domain.User, id string, limit int) ([]*domain.Activity, error)
}

// ReminderService nudges reviewers about tasks left in review
type ReminderService interface {
	// SendReviewReminders dispatches one reminder per stale task and returns how many were sent
	SendReviewReminders(ctx context.Context) (int, error)
}
