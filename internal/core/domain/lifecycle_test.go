package domain

import (
	"errors"
	"testing"
)

var (
	dev      = &User{ID: "u1", Role: RoleDeveloper, Active: true}
	otherDev = &User{ID: "u2", Role: RoleDeveloper, Active: true}
	manager  = &User{ID: "m1", Role: RoleManager, Active: true}
	agent    = &User{ID: "ag1", Role: RoleAgencyUser, AgencyID: "a1", Active: true}
)

func taskIn(status TaskStatus) *Task {
	return &Task{ID: "t1", ProjectID: "p1", Title: "Site visit report", AssignedTo: "u1", Status: status}
}

func TestAuthorizeTransitionAllowed(t *testing.T) {
	tests := []struct {
		from TaskStatus
		to   TaskStatus
		user *User
	}{
		{TaskStatusNotStarted, TaskStatusInProgress, dev},
		{TaskStatusNotStarted, TaskStatusSentForReview, dev},
		{TaskStatusInProgress, TaskStatusBlocked, dev},
		{TaskStatusInProgress, TaskStatusWaiting, dev},
		{TaskStatusInProgress, TaskStatusSentForReview, dev},
		{TaskStatusBlocked, TaskStatusInProgress, dev},
		{TaskStatusWaiting, TaskStatusSentForReview, dev},
		{TaskStatusSentForReview, TaskStatusApproved, manager},
		{TaskStatusSentForReview, TaskStatusCompleted, manager},
		{TaskStatusSentForReview, TaskStatusChangesRequested, manager},
		{TaskStatusApproved, TaskStatusCompleted, manager},
		{TaskStatusChangesRequested, TaskStatusInProgress, dev},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if err := AuthorizeTransition(tt.user, taskIn(tt.from), tt.to); err != nil {
				t.Errorf("expected transition to be allowed, got %v", err)
			}
		})
	}
}

func TestAuthorizeTransitionInvalid(t *testing.T) {
	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
	}{
		{"no-op review", TaskStatusSentForReview, TaskStatusSentForReview},
		{"no-op progress", TaskStatusInProgress, TaskStatusInProgress},
		{"completed to in_progress", TaskStatusCompleted, TaskStatusInProgress},
		{"completed to approved", TaskStatusCompleted, TaskStatusApproved},
		{"approve before review", TaskStatusInProgress, TaskStatusApproved},
		{"skip to completed", TaskStatusNotStarted, TaskStatusCompleted},
		{"resubmit without rework", TaskStatusChangesRequested, TaskStatusSentForReview},
		{"blocked to waiting", TaskStatusBlocked, TaskStatusWaiting},
		{"unknown target", TaskStatusInProgress, TaskStatus("done")},
		{"unknown source", TaskStatus("pending_review"), TaskStatusApproved},
	}

	// The edge check happens before the actor check, so even a fully
	// privileged actor gets ErrInvalidTransition.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, u := range []*User{dev, manager, nil} {
				err := AuthorizeTransition(u, taskIn(tt.from), tt.to)
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition for %v, got %v", u, err)
				}
				if IsDenial(err) {
					t.Errorf("invalid transition must not be reported as a denial: %v", err)
				}
			}
		})
	}
}

func TestCompletedHasNoOutgoingTransitions(t *testing.T) {
	if next := NextStatuses(TaskStatusCompleted); len(next) != 0 {
		t.Errorf("expected no transitions out of completed, got %v", next)
	}
	if !TaskStatusCompleted.IsTerminal() {
		t.Error("expected completed to be terminal")
	}
	for s := range transitions {
		if s != TaskStatusCompleted && len(NextStatuses(s)) == 0 {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestAuthorizeTransitionDenied(t *testing.T) {
	tests := []struct {
		name   string
		user   *User
		from   TaskStatus
		to     TaskStatus
		locked bool
	}{
		{"non-assignee submits", otherDev, TaskStatusInProgress, TaskStatusSentForReview, false},
		{"manager starts someone else's task", manager, TaskStatusNotStarted, TaskStatusInProgress, false},
		{"assignee self-approves", dev, TaskStatusSentForReview, TaskStatusApproved, true},
		{"assignee requests own changes", dev, TaskStatusSentForReview, TaskStatusChangesRequested, true},
		{"developer approves", otherDev, TaskStatusSentForReview, TaskStatusApproved, false},
		{"agency user completes", agent, TaskStatusSentForReview, TaskStatusCompleted, false},
		{"assignee completes approved", dev, TaskStatusApproved, TaskStatusCompleted, false},
		{"anonymous", nil, TaskStatusInProgress, TaskStatusSentForReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeTransition(tt.user, taskIn(tt.from), tt.to)
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if errors.Is(err, ErrInvalidTransition) {
				t.Errorf("denial must not be reported as invalid transition: %v", err)
			}
			if got := errors.Is(err, ErrTaskLocked); got != tt.locked {
				t.Errorf("expected locked=%v, got %v (%v)", tt.locked, got, err)
			}
		})
	}
}

func TestAssignedManagerCannotApproveOwnWork(t *testing.T) {
	task := taskIn(TaskStatusApproved)
	task.AssignedTo = manager.ID

	err := AuthorizeTransition(manager, task, TaskStatusCompleted)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestPolicyErrorCarriesReason(t *testing.T) {
	err := AuthorizeTransition(otherDev, taskIn(TaskStatusInProgress), TaskStatusSentForReview)

	var pe *PolicyError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PolicyError, got %T", err)
	}
	if pe.Reason == "" {
		t.Error("expected a denial reason")
	}
}

func TestCanEditTask(t *testing.T) {
	tests := []struct {
		name    string
		user    *User
		status  TaskStatus
		wantErr error
	}{
		{"assignee in progress", dev, TaskStatusInProgress, nil},
		{"assignee not started", dev, TaskStatusNotStarted, nil},
		{"assignee under review", dev, TaskStatusSentForReview, ErrTaskLocked},
		{"assignee after changes requested", dev, TaskStatusChangesRequested, nil},
		{"manager under review", manager, TaskStatusSentForReview, nil},
		{"manager completed", manager, TaskStatusCompleted, ErrForbidden},
		{"assignee completed", dev, TaskStatusCompleted, ErrForbidden},
		{"other developer", otherDev, TaskStatusInProgress, ErrForbidden},
		{"agency user", agent, TaskStatusInProgress, ErrForbidden},
		{"anonymous", nil, TaskStatusInProgress, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanEditTask(tt.user, taskIn(tt.status))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected edit to be allowed, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReviewLockReleasedByChangesRequested(t *testing.T) {
	task := taskIn(TaskStatusSentForReview)
	if err := CanEditTask(dev, task); !errors.Is(err, ErrTaskLocked) {
		t.Fatalf("expected lock while under review, got %v", err)
	}

	if err := AuthorizeTransition(manager, task, TaskStatusChangesRequested); err != nil {
		t.Fatalf("expected manager to request changes, got %v", err)
	}
	task.Status = TaskStatusChangesRequested

	if err := CanEditTask(dev, task); err != nil {
		t.Errorf("expected assignee to edit after changes requested, got %v", err)
	}
	if err := AuthorizeTransition(dev, task, TaskStatusInProgress); err != nil {
		t.Errorf("expected assignee to resume work, got %v", err)
	}
}

func TestCanReassign(t *testing.T) {
	if err := CanReassign(manager, taskIn(TaskStatusInProgress)); err != nil {
		t.Errorf("expected manager to reassign, got %v", err)
	}
	if err := CanReassign(dev, taskIn(TaskStatusInProgress)); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for developer, got %v", err)
	}
	if err := CanReassign(manager, taskIn(TaskStatusSentForReview)); !errors.Is(err, ErrTaskLocked) {
		t.Errorf("expected ErrTaskLocked under review, got %v", err)
	}
	if err := CanReassign(manager, taskIn(TaskStatusCompleted)); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden when completed, got %v", err)
	}
}

func TestValidateAssignee(t *testing.T) {
	tests := []struct {
		name    string
		user    *User
		wantErr bool
	}{
		{"active developer", dev, false},
		{"active manager", manager, false},
		{"inactive developer", &User{ID: "x", Role: RoleDeveloper}, true},
		{"agency user", agent, true},
		{"admin", &User{ID: "ad", Role: RoleAdmin, Active: true}, true},
		{"missing", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssignee(tt.user)
			if tt.wantErr != (err != nil) {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
