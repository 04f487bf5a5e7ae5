package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/cucumber/godog"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven/mocks"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

// lifecycleWorld holds the state of one scenario
type lifecycleWorld struct {
	tasks      *mocks.MockTaskStore
	projects   *mocks.MockProjectStore
	agencies   *mocks.MockAgencyStore
	users      *mocks.MockUserStore
	dispatcher *mocks.MockDispatcher

	taskSvc    *TaskService
	projectSvc driving.ProjectService

	people  map[string]*domain.User
	lastErr error
	listed  []*domain.Project
}

func newLifecycleWorld() *lifecycleWorld {
	w := &lifecycleWorld{
		tasks:      mocks.NewMockTaskStore(),
		projects:   mocks.NewMockProjectStore(),
		agencies:   mocks.NewMockAgencyStore(),
		users:      mocks.NewMockUserStore(),
		dispatcher: mocks.NewMockDispatcher(),
		people:     make(map[string]*domain.User),
	}
	activity := mocks.NewMockActivityStore()
	w.taskSvc = NewTaskService(TaskServiceConfig{
		Tasks:      w.tasks,
		Projects:   w.projects,
		Users:      w.users,
		Activity:   activity,
		Dispatcher: w.dispatcher,
	})
	w.projectSvc = NewProjectService(w.projects, w.agencies, activity, nil)
	return w
}

func (w *lifecycleWorld) addUser(id string, role domain.Role, agencyID string) {
	u := &domain.User{ID: id, Email: id + "@example.com", Name: id, Role: role, AgencyID: agencyID, Active: true}
	w.users.Add(u)
	w.people[id] = u
}

func (w *lifecycleWorld) user(id string) (*domain.User, error) {
	u, ok := w.people[id]
	if !ok {
		return nil, fmt.Errorf("unknown user %q", id)
	}
	return u, nil
}

func (w *lifecycleWorld) aProjectOwnedBy(projectID, agencyID string) error {
	_ = w.agencies.Save(context.Background(), &domain.Agency{ID: agencyID, Name: agencyID})
	w.projects.Add(&domain.Project{ID: projectID, AgencyID: agencyID, Name: projectID, Status: domain.ProjectStatusInProgress})
	return nil
}

func (w *lifecycleWorld) aDeveloper(id string) error {
	w.addUser(id, domain.RoleDeveloper, "")
	return nil
}

func (w *lifecycleWorld) aManager(id string) error {
	w.addUser(id, domain.RoleManager, "")
	return nil
}

func (w *lifecycleWorld) anAgencyUser(id, agencyID string) error {
	w.addUser(id, domain.RoleAgencyUser, agencyID)
	return nil
}

func (w *lifecycleWorld) aTaskAssignedTo(taskID, assignee, status string) error {
	s, ok := domain.ParseTaskStatus(status)
	if !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	w.tasks.Add(&domain.Task{ID: taskID, ProjectID: "p1", Title: taskID, AssignedTo: assignee, Status: s})
	return nil
}

func (w *lifecycleWorld) moves(actorID, taskID, to string) error {
	return w.movesExpecting(actorID, taskID, to, "")
}

func (w *lifecycleWorld) movesExpecting(actorID, taskID, to, expected string) error {
	actor, err := w.user(actorID)
	if err != nil {
		return err
	}
	_, w.lastErr = w.taskSvc.Transition(context.Background(), actor, taskID, driving.TransitionRequest{
		To:             to,
		ExpectedStatus: expected,
	})
	return nil
}

func (w *lifecycleWorld) lists(actorID string) error {
	actor, err := w.user(actorID)
	if err != nil {
		return err
	}
	w.listed, w.lastErr = w.projectSvc.List(context.Background(), actor, "")
	return nil
}

func (w *lifecycleWorld) expectError(target error) error {
	if !errors.Is(w.lastErr, target) {
		return fmt.Errorf("expected %v, got %v", target, w.lastErr)
	}
	return nil
}

func (w *lifecycleWorld) succeeds() error {
	if w.lastErr != nil {
		return fmt.Errorf("expected success, got %v", w.lastErr)
	}
	return nil
}

func (w *lifecycleWorld) isDenied() error { return w.expectError(domain.ErrForbidden) }
func (w *lifecycleWorld) isLocked() error { return w.expectError(domain.ErrTaskLocked) }
func (w *lifecycleWorld) conflicts() error { return w.expectError(domain.ErrConflict) }
func (w *lifecycleWorld) isInvalid() error { return w.expectError(domain.ErrInvalidTransition) }
func (w *lifecycleWorld) noNotification() error {
	if sent := w.dispatcher.Sent(); len(sent) != 0 {
		return fmt.Errorf("expected no notifications, got %d", len(sent))
	}
	return nil
}

func (w *lifecycleWorld) taskIsIn(taskID, status string) error {
	if got := w.tasks.Status(taskID); string(got) != status {
		return fmt.Errorf("expected task %s in %s, got %s", taskID, status, got)
	}
	return nil
}

func (w *lifecycleWorld) notificationSentTo(kind, recipient string) error {
	for _, n := range w.dispatcher.Sent() {
		if string(n.Kind) == kind && slices.Contains(n.Recipients, recipient) {
			return nil
		}
	}
	return fmt.Errorf("no %s notification sent to %s", kind, recipient)
}

func (w *lifecycleWorld) containsOnlyProject(projectID string) error {
	if err := w.succeeds(); err != nil {
		return err
	}
	if len(w.listed) != 1 || w.listed[0].ID != projectID {
		ids := make([]string, 0, len(w.listed))
		for _, p := range w.listed {
			ids = append(ids, p.ID)
		}
		return fmt.Errorf("expected only %s, got %v", projectID, ids)
	}
	return nil
}

func initializeLifecycleScenario(sc *godog.ScenarioContext) {
	var w *lifecycleWorld
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w = newLifecycleWorld()
		return ctx, nil
	})

	sc.Step(`^a project "([^"]*)" owned by agency "([^"]*)"$`, func(p, a string) error { return w.aProjectOwnedBy(p, a) })
	sc.Step(`^a developer "([^"]*)"$`, func(id string) error { return w.aDeveloper(id) })
	sc.Step(`^a manager "([^"]*)"$`, func(id string) error { return w.aManager(id) })
	sc.Step(`^an agency user "([^"]*)" of agency "([^"]*)"$`, func(id, a string) error { return w.anAgencyUser(id, a) })
	sc.Step(`^a task "([^"]*)" assigned to "([^"]*)" in status "([^"]*)"$`, func(t, u, s string) error { return w.aTaskAssignedTo(t, u, s) })
	sc.Step(`^"([^"]*)" moves task "([^"]*)" to "([^"]*)"$`, func(a, t, to string) error { return w.moves(a, t, to) })
	sc.Step(`^"([^"]*)" moves task "([^"]*)" to "([^"]*)" expecting "([^"]*)"$`, func(a, t, to, e string) error { return w.movesExpecting(a, t, to, e) })
	sc.Step(`^"([^"]*)" lists projects$`, func(a string) error { return w.lists(a) })
	sc.Step(`^the request succeeds$`, func() error { return w.succeeds() })
	sc.Step(`^the request is denied$`, func() error { return w.isDenied() })
	sc.Step(`^the request is denied because the task is locked$`, func() error { return w.isLocked() })
	sc.Step(`^the request conflicts$`, func() error { return w.conflicts() })
	sc.Step(`^the transition is invalid$`, func() error { return w.isInvalid() })
	sc.Step(`^task "([^"]*)" is in status "([^"]*)"$`, func(t, s string) error { return w.taskIsIn(t, s) })
	sc.Step(`^a "([^"]*)" notification was sent to "([^"]*)"$`, func(k, r string) error { return w.notificationSentTo(k, r) })
	sc.Step(`^no notification was sent$`, func() error { return w.noNotification() })
	sc.Step(`^the result contains only project "([^"]*)"$`, func(p string) error { return w.containsOnlyProject(p) })
}

func TestLifecycleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "task-lifecycle",
		ScenarioInitializer: initializeLifecycleScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("lifecycle feature scenarios failed")
	}
}
