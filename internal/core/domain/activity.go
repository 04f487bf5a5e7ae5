package domain

import "time"

// ActivityKind classifies an activity record
type ActivityKind string

const (
	ActivityTaskCreated          ActivityKind = "task_created"
	ActivityTaskTransitioned     ActivityKind = "task_transitioned"
	ActivityTaskUpdated          ActivityKind = "task_updated"
	ActivityTaskAssigned         ActivityKind = "task_assigned"
	ActivityTaskDeleted          ActivityKind = "task_deleted"
	ActivityProjectSubmitted     ActivityKind = "project_submitted"
	ActivityProjectStatusChanged ActivityKind = "project_status_changed"
)

// Activity is an append-only audit record of a change to a project or task
type Activity struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	TaskID    string       `json:"task_id,omitempty"`
	ActorID   string       `json:"actor_id"`
	Kind      ActivityKind `json:"kind"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewActivity creates an activity record stamped now
func NewActivity(kind ActivityKind, projectID, taskID, actorID, message string) *Activity {
	return &Activity{
		ID:        GenerateID(),
		ProjectID: projectID,
		TaskID:    taskID,
		ActorID:   actorID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
