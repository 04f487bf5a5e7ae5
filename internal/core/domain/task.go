package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusNotStarted       TaskStatus = "not_started"
	TaskStatusInProgress       TaskStatus = "in_progress"
	TaskStatusBlocked          TaskStatus = "blocked"
	TaskStatusWaiting          TaskStatus = "waiting"
	TaskStatusSentForReview    TaskStatus = "sent_for_review"
	TaskStatusApproved         TaskStatus = "approved"
	TaskStatusCompleted        TaskStatus = "completed"
	TaskStatusChangesRequested TaskStatus = "changes_requested"
)

// legacyPendingReview is the older name for sent_for_review still sent by some clients
const legacyPendingReview = "pending_review"

// ParseTaskStatus maps a raw status to its canonical value.
// pending_review is accepted as an alias of sent_for_review.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	if raw == legacyPendingReview {
		return TaskStatusSentForReview, true
	}
	s := TaskStatus(raw)
	return s, s.Valid()
}

// Valid reports whether s is a canonical task status
func (s TaskStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted
}

// Task is a unit of project work assigned to one user at a time
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Attachments []string   `json:"attachments"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	ReviewerID  string     `json:"reviewer_id,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedBy   string     `json:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// StatusChangedAt is when Status last changed; reminders key off it
	StatusChangedAt time.Time `json:"status_changed_at"`
}

// TaskGuard is the part of a task that lifecycle decisions depend on.
// Conditional writes only apply while the stored task still matches it.
type TaskGuard struct {
	Status     TaskStatus
	AssignedTo string
}

// Guard returns the task's current guard
func (t *Task) Guard() TaskGuard {
	return TaskGuard{Status: t.Status, AssignedTo: t.AssignedTo}
}

// NewTask creates a task in not_started
func NewTask(projectID, title, createdBy string) *Task {
	now := time.Now()
	return &Task{
		ID:              GenerateID(),
		ProjectID:       projectID,
		Title:           title,
		Attachments:     []string{},
		Status:          TaskStatusNotStarted,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
		StatusChangedAt: now,
	}
}

// IsAssignee reports whether user is the task's current assignee
func (t *Task) IsAssignee(user *User) bool {
	return user != nil && t.AssignedTo != "" && t.AssignedTo == user.ID
}

// TaskFilter narrows task listings
type TaskFilter struct {
	ProjectID  string
	AssignedTo string
	Status     TaskStatus
}

// Matches reports whether t satisfies every non-empty field of f
func (f TaskFilter) Matches(t *Task) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}
