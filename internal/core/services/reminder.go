package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

var _ driving.ReminderService = (*reminderService)(nil)

// DefaultReminderAfter is how long a task may sit in review before reviewers are nudged
const DefaultReminderAfter = 48 * time.Hour

type reminderService struct {
	tasks      driven.TaskStore
	users      driven.UserStore
	dispatcher driven.NotificationDispatcher
	after      time.Duration
	logger     *slog.Logger
}

// NewReminderService creates a ReminderService that nudges reviewers of
// tasks left in sent_for_review for longer than after.
func NewReminderService(
	tasks driven.TaskStore,
	users driven.UserStore,
	dispatcher driven.NotificationDispatcher,
	after time.Duration,
	logger *slog.Logger,
) driving.ReminderService {
	if after <= 0 {
		after = DefaultReminderAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &reminderService{
		tasks:      tasks,
		users:      users,
		dispatcher: dispatcher,
		after:      after,
		logger:     logger,
	}
}

func (s *reminderService) SendReviewReminders(ctx context.Context) (int, error) {
	stale, err := s.tasks.ListInStatusSince(ctx, domain.TaskStatusSentForReview, time.Now().Add(-s.after))
	if err != nil {
		return 0, err
	}

	var approvers []*domain.User
	loaded := false
	sent := 0
	for _, task := range stale {
		if task.ReviewerID == "" && !loaded {
			approvers, err = s.users.List(ctx, driven.UserFilter{ActiveOnly: true})
			if err != nil {
				return sent, err
			}
			loaded = true
		}

		recipients := domain.ReviewerChain(task, "", approvers)
		if len(recipients) == 0 {
			continue
		}
		n := domain.NewNotification(domain.NotificationReviewReminder, task, "", recipients)
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.logger.Warn("failed to dispatch review reminder", "task_id", task.ID, "error", err)
			continue
		}
		sent++
	}

	s.logger.Info("review reminders sent", "stale", len(stale), "sent", sent)
	return sent, nil
}
