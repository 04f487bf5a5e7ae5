package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven/mocks"
)

func TestReminderService_SendReviewReminders(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	users := mocks.NewMockUserStore()
	dispatcher := mocks.NewMockDispatcher()
	ctx := context.Background()

	users.Add(
		&domain.User{ID: "mgr", Email: "mgr@example.com", Name: "Max", Role: domain.RoleManager, Active: true},
		&domain.User{ID: "old", Email: "old@example.com", Name: "Old", Role: domain.RoleManager, Active: false},
		&domain.User{ID: "dev", Email: "dev@example.com", Name: "Dev", Role: domain.RoleDeveloper, Active: true},
	)

	stale := time.Now().Add(-72 * time.Hour)
	fresh := time.Now().Add(-time.Hour)
	tasks.Add(
		&domain.Task{ID: "stale-pool", ProjectID: "p1", AssignedTo: "dev", Status: domain.TaskStatusSentForReview, StatusChangedAt: stale},
		&domain.Task{ID: "stale-reviewer", ProjectID: "p1", AssignedTo: "dev", ReviewerID: "mgr2", Status: domain.TaskStatusSentForReview, StatusChangedAt: stale},
		&domain.Task{ID: "fresh", ProjectID: "p1", AssignedTo: "dev", Status: domain.TaskStatusSentForReview, StatusChangedAt: fresh},
		&domain.Task{ID: "working", ProjectID: "p1", AssignedTo: "dev", Status: domain.TaskStatusInProgress, StatusChangedAt: stale},
	)

	svc := NewReminderService(tasks, users, dispatcher, 48*time.Hour, nil)

	sent, err := svc.SendReviewReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	byTask := make(map[string][]string)
	for _, n := range dispatcher.Sent() {
		assert.Equal(t, domain.NotificationReviewReminder, n.Kind)
		byTask[n.TaskID] = n.Recipients
	}
	assert.Equal(t, []string{"mgr"}, byTask["stale-pool"])
	assert.Equal(t, []string{"mgr2"}, byTask["stale-reviewer"])

	// Still stale on the next run, so reviewers are reminded again
	sent, err = svc.SendReviewReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestReminderService_NoAudience(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	dispatcher := mocks.NewMockDispatcher()
	tasks.Add(&domain.Task{
		ID:              "t1",
		Status:          domain.TaskStatusSentForReview,
		StatusChangedAt: time.Now().Add(-72 * time.Hour),
	})

	svc := NewReminderService(tasks, mocks.NewMockUserStore(), dispatcher, 0, nil)

	sent, err := svc.SendReviewReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, dispatcher.Sent())
}

func TestReminderService_DispatchFailure(t *testing.T) {
	tasks := mocks.NewMockTaskStore()
	dispatcher := mocks.NewMockDispatcher()
	dispatcher.Err = errors.New("queue down")
	tasks.Add(&domain.Task{
		ID:              "t1",
		ReviewerID:      "mgr",
		Status:          domain.TaskStatusSentForReview,
		StatusChangedAt: time.Now().Add(-72 * time.Hour),
	})

	svc := NewReminderService(tasks, mocks.NewMockUserStore(), dispatcher, time.Hour, nil)

	sent, err := svc.SendReviewReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}
