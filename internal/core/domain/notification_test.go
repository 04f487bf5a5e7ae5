package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionNotificationReviewRequested(t *testing.T) {
	task := taskIn(TaskStatusInProgress)
	approvers := []*User{
		manager,
		{ID: "m2", Role: RoleManager, Active: false},
		{ID: "ad1", Role: RoleAdmin, Active: true},
		{ID: "d9", Role: RoleDeveloper, Active: true},
		manager,
	}

	assert.True(t, NeedsReviewerLookup(task, TaskStatusSentForReview))

	n := TransitionNotification(task, TaskStatusInProgress, TaskStatusSentForReview, dev.ID, approvers)
	require.NotNil(t, n)
	assert.Equal(t, NotificationReviewRequested, n.Kind)
	assert.Equal(t, []string{"m1", "ad1"}, n.Recipients)
	assert.Equal(t, &Transition{From: TaskStatusInProgress, To: TaskStatusSentForReview}, n.Transition)
	assert.Equal(t, "t1", n.TaskID)
	assert.Equal(t, "Site visit report", n.Title)
}

func TestTransitionNotificationDesignatedReviewer(t *testing.T) {
	task := taskIn(TaskStatusInProgress)
	task.ReviewerID = "m7"

	assert.False(t, NeedsReviewerLookup(task, TaskStatusSentForReview))
	n := TransitionNotification(task, TaskStatusInProgress, TaskStatusSentForReview, dev.ID, nil)
	require.NotNil(t, n)
	assert.Equal(t, []string{"m7"}, n.Recipients)
}

func TestTransitionNotificationNotifiesAssignee(t *testing.T) {
	for _, to := range []TaskStatus{TaskStatusApproved, TaskStatusCompleted, TaskStatusChangesRequested} {
		n := TransitionNotification(taskIn(TaskStatusSentForReview), TaskStatusSentForReview, to, manager.ID, nil)
		require.NotNil(t, n, to)
		assert.Equal(t, NotificationTaskReviewed, n.Kind)
		assert.Equal(t, []string{"u1"}, n.Recipients)
	}
}

func TestTransitionNotificationSilentMoves(t *testing.T) {
	assert.Nil(t, TransitionNotification(taskIn(TaskStatusInProgress), TaskStatusInProgress, TaskStatusBlocked, dev.ID, nil))

	// Nobody left to tell once the actor is excluded.
	task := taskIn(TaskStatusInProgress)
	task.ReviewerID = dev.ID
	assert.Nil(t, TransitionNotification(task, TaskStatusInProgress, TaskStatusSentForReview, dev.ID, nil))
}

func TestCreationNotification(t *testing.T) {
	task := taskIn(TaskStatusNotStarted)

	n := CreationNotification(task, manager.ID)
	require.NotNil(t, n)
	assert.Equal(t, NotificationTaskCreated, n.Kind)
	assert.Equal(t, []string{"u1"}, n.Recipients)

	assert.Nil(t, CreationNotification(task, "u1"), "creator assigned to self")
	assert.Nil(t, CreationNotification(&Task{ID: "t2"}, manager.ID), "unassigned")
}

func TestAssignmentNotification(t *testing.T) {
	task := taskIn(TaskStatusInProgress)
	task.AssignedTo = "u2"

	n := AssignmentNotification(task, manager.ID)
	require.NotNil(t, n)
	assert.Equal(t, NotificationTaskAssigned, n.Kind)
	assert.Equal(t, []string{"u2"}, n.Recipients)
}
