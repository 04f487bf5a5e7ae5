package domain

import "time"

// NotificationKind identifies why a notification was raised
type NotificationKind string

const (
	NotificationTaskCreated     NotificationKind = "task_created"
	NotificationTaskAssigned    NotificationKind = "task_assigned"
	NotificationReviewRequested NotificationKind = "review_requested"
	NotificationTaskReviewed    NotificationKind = "task_reviewed"
	NotificationReviewReminder  NotificationKind = "review_reminder"
)

// Transition is a from/to status pair
type Transition struct {
	From TaskStatus `json:"from"`
	To   TaskStatus `json:"to"`
}

// Notification is the fire-and-forget message handed to the dispatcher
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	TaskID     string           `json:"task_id"`
	ProjectID  string           `json:"project_id"`
	Title      string           `json:"title"`
	Transition *Transition      `json:"transition,omitempty"`
	ActorID    string           `json:"actor_id,omitempty"`
	Recipients []string         `json:"recipients"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewNotification builds a notification about task
func NewNotification(kind NotificationKind, task *Task, actorID string, recipients []string) *Notification {
	return &Notification{
		ID:         GenerateID(),
		Kind:       kind,
		TaskID:     task.ID,
		ProjectID:  task.ProjectID,
		Title:      task.Title,
		ActorID:    actorID,
		Recipients: recipients,
		CreatedAt:  time.Now(),
	}
}

// NeedsReviewerLookup reports whether notifying a move to `to` requires the
// list of approvers, i.e. the task has no designated reviewer.
func NeedsReviewerLookup(task *Task, to TaskStatus) bool {
	return to == TaskStatusSentForReview && task.ReviewerID == ""
}

// ReviewerChain returns who reviews task: its designated reviewer, or every
// active approver when none is set. The actor is never included.
func ReviewerChain(task *Task, actorID string, approvers []*User) []string {
	if task.ReviewerID != "" {
		return recipients(actorID, task.ReviewerID)
	}
	ids := make([]string, 0, len(approvers))
	for _, u := range approvers {
		if u != nil && u.Active && HasPermission(u, PermApproveTasks) {
			ids = append(ids, u.ID)
		}
	}
	return recipients(actorID, ids...)
}

// TransitionNotification returns the notification a committed transition
// should raise, or nil when the move has no audience.
func TransitionNotification(task *Task, from, to TaskStatus, actorID string, approvers []*User) *Notification {
	var (
		kind     NotificationKind
		audience []string
	)
	switch to {
	case TaskStatusSentForReview:
		kind = NotificationReviewRequested
		audience = ReviewerChain(task, actorID, approvers)
	case TaskStatusApproved, TaskStatusCompleted, TaskStatusChangesRequested:
		kind = NotificationTaskReviewed
		audience = recipients(actorID, task.AssignedTo)
	default:
		return nil
	}
	if len(audience) == 0 {
		return nil
	}
	n := NewNotification(kind, task, actorID, audience)
	n.Transition = &Transition{From: from, To: to}
	return n
}

// CreationNotification tells a new task's assignee about it, unless they created it
func CreationNotification(task *Task, creatorID string) *Notification {
	to := recipients(creatorID, task.AssignedTo)
	if len(to) == 0 {
		return nil
	}
	return NewNotification(NotificationTaskCreated, task, creatorID, to)
}

// AssignmentNotification tells the new assignee about a reassignment
func AssignmentNotification(task *Task, actorID string) *Notification {
	to := recipients(actorID, task.AssignedTo)
	if len(to) == 0 {
		return nil
	}
	return NewNotification(NotificationTaskAssigned, task, actorID, to)
}

// recipients de-duplicates ids, dropping blanks and the actor
func recipients(actorID string, ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == actorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
