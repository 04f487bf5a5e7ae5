package domain

import "fmt"

// actor names who may trigger a transition edge
type actor int

const (
	// actorAssignee is the task's current assignee
	actorAssignee actor = iota
	// actorApprover holds approve_tasks and is not the assignee
	actorApprover
)

func (a actor) String() string {
	if a == actorApprover {
		return "approver"
	}
	return "assignee"
}

// transitions is the task state machine: from -> to -> who may move it.
// Every status has an entry so the table doubles as the status set.
var transitions = map[TaskStatus]map[TaskStatus]actor{
	TaskStatusNotStarted: {
		TaskStatusInProgress:    actorAssignee,
		TaskStatusSentForReview: actorAssignee,
	},
	TaskStatusInProgress: {
		TaskStatusBlocked:       actorAssignee,
		TaskStatusWaiting:       actorAssignee,
		TaskStatusSentForReview: actorAssignee,
	},
	TaskStatusBlocked: {
		TaskStatusInProgress:    actorAssignee,
		TaskStatusSentForReview: actorAssignee,
	},
	TaskStatusWaiting: {
		TaskStatusInProgress:    actorAssignee,
		TaskStatusSentForReview: actorAssignee,
	},
	TaskStatusSentForReview: {
		TaskStatusApproved:         actorApprover,
		TaskStatusCompleted:        actorApprover,
		TaskStatusChangesRequested: actorApprover,
	},
	TaskStatusApproved: {
		TaskStatusCompleted: actorApprover,
	},
	TaskStatusChangesRequested: {
		TaskStatusInProgress: actorAssignee,
	},
	TaskStatusCompleted: {},
}

// NextStatuses lists the statuses reachable from s in one step
func NextStatuses(s TaskStatus) []TaskStatus {
	next := make([]TaskStatus, 0, len(transitions[s]))
	for _, candidate := range []TaskStatus{
		TaskStatusNotStarted, TaskStatusInProgress, TaskStatusBlocked, TaskStatusWaiting,
		TaskStatusSentForReview, TaskStatusApproved, TaskStatusCompleted, TaskStatusChangesRequested,
	} {
		if _, ok := transitions[s][candidate]; ok {
			next = append(next, candidate)
		}
	}
	return next
}

// AuthorizeTransition decides whether user may move task to the target status.
// A missing edge is reported as ErrInvalidTransition before the actor is
// checked; an edge the user may not take is reported as ErrForbidden.
func AuthorizeTransition(user *User, task *Task, to TaskStatus) error {
	if task == nil {
		return Reject("no task")
	}
	from := task.Status
	edges, known := transitions[from]
	if !known {
		return Reject("unknown status %q", from)
	}
	if !to.Valid() {
		return Reject("unknown status %q", to)
	}
	if from == to {
		return Reject("task is already %s", from)
	}
	if from.IsTerminal() {
		return Reject("%s is terminal", from)
	}
	who, ok := edges[to]
	if !ok {
		return Reject("cannot move from %s to %s", from, to)
	}

	if user == nil {
		return Deny("no authenticated user")
	}
	switch who {
	case actorAssignee:
		if !task.IsAssignee(user) {
			return Deny("only the assignee may move a task from %s to %s", from, to)
		}
	case actorApprover:
		if task.IsAssignee(user) {
			if from == TaskStatusSentForReview {
				return ErrTaskLocked
			}
			return Deny("assignees cannot approve their own work")
		}
		if !HasPermission(user, PermApproveTasks) {
			return Deny("%s may not approve tasks", user.Role)
		}
	}
	return nil
}

// CanEditTask decides whether user may change a task's details.
// The assignee is locked out while the task is under review; task managers
// may edit any task that is not completed.
func CanEditTask(user *User, task *Task) error {
	if user == nil {
		return Deny("no authenticated user")
	}
	if task.Status.IsTerminal() {
		return Deny("%s tasks are read-only", task.Status)
	}
	if HasPermission(user, PermManageTasks) {
		return nil
	}
	if task.IsAssignee(user) {
		if task.Status == TaskStatusSentForReview {
			return ErrTaskLocked
		}
		return nil
	}
	return Deny("only the assignee or a task manager may edit this task")
}

// CanManageTasks checks the blanket permission needed to create or delete tasks
func CanManageTasks(user *User) error {
	if !HasPermission(user, PermManageTasks) {
		return Deny("manage_tasks is required")
	}
	return nil
}

// CanReassign decides whether user may change the task's assignee
func CanReassign(user *User, task *Task) error {
	if err := CanManageTasks(user); err != nil {
		return err
	}
	switch task.Status {
	case TaskStatusSentForReview:
		return ErrTaskLocked
	case TaskStatusCompleted:
		return Deny("%s tasks are read-only", task.Status)
	}
	return nil
}

// ValidateAssignee checks that a user can receive task work
func ValidateAssignee(assignee *User) error {
	if assignee == nil {
		return fmt.Errorf("%w: assignee not found", ErrInvalidInput)
	}
	if !assignee.Active {
		return fmt.Errorf("%w: assignee %s is inactive", ErrInvalidInput, assignee.ID)
	}
	if assignee.Role != RoleDeveloper && assignee.Role != RoleManager {
		return fmt.Errorf("%w: %s users cannot be assigned tasks", ErrInvalidInput, assignee.Role)
	}
	return nil
}
