package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

var _ driving.TaskService = (*TaskService)(nil)

// TaskService runs the task lifecycle: policy check, conditional write,
// activity record, then a fire-and-forget notification.
type TaskService struct {
	tasks      driven.TaskStore
	projects   driven.ProjectStore
	users      driven.UserStore
	activity   driven.ActivityStore
	dispatcher driven.NotificationDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// TaskServiceConfig holds the collaborators of a TaskService.
type TaskServiceConfig struct {
	Tasks      driven.TaskStore
	Projects   driven.ProjectStore
	Users      driven.UserStore
	Activity   driven.ActivityStore
	Dispatcher driven.NotificationDispatcher
	Logger     *slog.Logger
	Now        func() time.Time // Optional: clock override for tests
}

// NewTaskService creates a new TaskService.
func NewTaskService(cfg TaskServiceConfig) *TaskService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		tasks:      cfg.Tasks,
		projects:   cfg.Projects,
		users:      cfg.Users,
		activity:   cfg.Activity,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Create adds a task to a project in not_started
func (s *TaskService) Create(ctx context.Context, actor *domain.User, req driving.CreateTaskRequest) (*domain.Task, error) {
	if err := domain.CanManageTasks(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if _, err := s.projects.Get(ctx, req.ProjectID); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, req.AssignedTo); err != nil {
		return nil, err
	}
	if err := s.checkReviewer(ctx, req.ReviewerID); err != nil {
		return nil, err
	}

	task := domain.NewTask(req.ProjectID, title, actor.ID)
	task.Description = strings.TrimSpace(req.Description)
	task.Attachments = normalizeAttachments(req.Attachments)
	task.AssignedTo = req.AssignedTo
	task.ReviewerID = req.ReviewerID
	task.DueDate = req.DueDate
	now := s.now()
	task.CreatedAt, task.UpdatedAt, task.StatusChangedAt = now, now, now

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.record(ctx, domain.NewActivity(domain.ActivityTaskCreated, task.ProjectID, task.ID, actor.ID,
		fmt.Sprintf("created task %q", task.Title)))
	s.notify(ctx, domain.CreationNotification(task, actor.ID))

	return task, nil
}

// Get returns a task the actor can see. Invisible tasks are reported as not found.
func (s *TaskService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewTask(actor, task) {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

// List returns the tasks the actor can see
func (s *TaskService) List(ctx context.Context, actor *domain.User, filter domain.TaskFilter) ([]*domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidInput
	}
	// Developers only ever see their own tasks, so narrow the query up front
	if actor != nil && actor.Role == domain.RoleDeveloper && filter.AssignedTo == "" {
		filter.AssignedTo = actor.ID
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.FilterTasks(actor, tasks), nil
}

// Transition moves a task to a new status.
//
// The stored status is only changed by a conditional write against the status
// and assignee the policy evaluated, so a concurrent change makes this call
// fail with ErrConflict instead of overwriting it.
func (s *TaskService) Transition(ctx context.Context, actor *domain.User, id string, req driving.TransitionRequest) (*domain.Task, error) {
	to, ok := domain.ParseTaskStatus(req.To)
	if !ok {
		return nil, domain.Reject("unknown status %q", req.To)
	}

	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := task.Status

	if req.ExpectedStatus != "" {
		expected, ok := domain.ParseTaskStatus(req.ExpectedStatus)
		if !ok {
			return nil, fmt.Errorf("%w: unknown expected_status %q", domain.ErrInvalidInput, req.ExpectedStatus)
		}
		if expected != from {
			return nil, fmt.Errorf("%w: task is %s, expected %s", domain.ErrConflict, from, expected)
		}
	}

	if err := domain.AuthorizeTransition(actor, task, to); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.tasks.UpdateStatus(ctx, task.ID, task.Guard(), to, now); err != nil {
		return nil, err
	}
	task.Status = to
	task.StatusChangedAt = now
	task.UpdatedAt = now

	s.logger.Info("task transitioned",
		"task_id", task.ID,
		"from", from,
		"to", to,
		"actor_id", actor.ID,
	)
	s.record(ctx, domain.NewActivity(domain.ActivityTaskTransitioned, task.ProjectID, task.ID, actor.ID,
		fmt.Sprintf("%s -> %s", from, to)))

	var approvers []*domain.User
	if domain.NeedsReviewerLookup(task, to) {
		approvers = s.approvers(ctx)
	}
	s.notify(ctx, domain.TransitionNotification(task, from, to, actor.ID, approvers))

	return task, nil
}

// Update edits task details. The assignee is locked out while the task is in review.
func (s *TaskService) Update(ctx context.Context, actor *domain.User, id string, req driving.UpdateTaskRequest) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanEditTask(actor, task); err != nil {
		return nil, err
	}
	guard := task.Guard()

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Attachments != nil {
		task.Attachments = normalizeAttachments(*req.Attachments)
	}
	if req.ReviewerID != nil && *req.ReviewerID != task.ReviewerID {
		if !domain.HasPermission(actor, domain.PermManageTasks) {
			return nil, domain.Deny("only a task manager may change the reviewer")
		}
		if err := s.checkReviewer(ctx, *req.ReviewerID); err != nil {
			return nil, err
		}
		task.ReviewerID = *req.ReviewerID
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	task.UpdatedAt = s.now()

	if err := s.tasks.UpdateDetails(ctx, task, guard); err != nil {
		return nil, err
	}

	s.record(ctx, domain.NewActivity(domain.ActivityTaskUpdated, task.ProjectID, task.ID, actor.ID, "updated details"))

	return task, nil
}

// Assign hands the task to another user, or unassigns it with an empty ID
func (s *TaskService) Assign(ctx context.Context, actor *domain.User, id string, req driving.AssignTaskRequest) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanReassign(actor, task); err != nil {
		return nil, err
	}
	if req.AssignedTo == task.AssignedTo {
		return task, nil
	}
	if err := s.checkAssignee(ctx, req.AssignedTo); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.tasks.UpdateAssignee(ctx, task.ID, task.Guard(), req.AssignedTo, now); err != nil {
		return nil, err
	}
	previous := task.AssignedTo
	task.AssignedTo = req.AssignedTo
	task.UpdatedAt = now

	s.record(ctx, domain.NewActivity(domain.ActivityTaskAssigned, task.ProjectID, task.ID, actor.ID,
		fmt.Sprintf("assignee %q -> %q", previous, req.AssignedTo)))
	s.notify(ctx, domain.AssignmentNotification(task, actor.ID))

	return task, nil
}

// Delete removes a task (manage_tasks)
func (s *TaskService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := domain.CanManageTasks(actor); err != nil {
		return err
	}
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, domain.NewActivity(domain.ActivityTaskDeleted, task.ProjectID, task.ID, actor.ID,
		fmt.Sprintf("deleted task %q", task.Title)))
	return nil
}

// Activity returns the task's audit trail
func (s *TaskService) Activity(ctx context.Context, actor *domain.User, id string, limit int) ([]*domain.Activity, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.activity.ListByTask(ctx, id, limit)
}

// checkAssignee validates a prospective assignee. Empty means unassigned.
func (s *TaskService) checkAssignee(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ValidateAssignee(nil)
		}
		return err
	}
	return domain.ValidateAssignee(user)
}

// checkReviewer validates a designated reviewer. Empty means the approver pool.
func (s *TaskService) checkReviewer(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: reviewer not found", domain.ErrInvalidInput)
		}
		return err
	}
	if !user.Active || !domain.HasPermission(user, domain.PermApproveTasks) {
		return fmt.Errorf("%w: %s cannot review tasks", domain.ErrInvalidInput, user.ID)
	}
	return nil
}

// approvers loads the active approver pool. Failures only cost a notification.
func (s *TaskService) approvers(ctx context.Context) []*domain.User {
	users, err := s.users.List(ctx, driven.UserFilter{ActiveOnly: true})
	if err != nil {
		s.logger.Warn("failed to load approvers", "error", err)
		return nil
	}
	return users
}

// notify hands n to the dispatcher. The write has already committed, so
// failures are logged and swallowed.
func (s *TaskService) notify(ctx context.Context, n *domain.Notification) {
	if n == nil || s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, n); err != nil {
		s.logger.Warn("failed to dispatch notification",
			"kind", n.Kind,
			"task_id", n.TaskID,
			"error", err,
		)
	}
}

func (s *TaskService) record(ctx context.Context, a *domain.Activity) {
	if err := s.activity.Append(ctx, a); err != nil {
		s.logger.Warn("failed to record activity", "kind", a.Kind, "task_id", a.TaskID, "error", err)
	}
}

func normalizeAttachments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
