package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

var _ driven.TaskStore = (*MockTaskStore)(nil)

// MockTaskStore is an in-memory TaskStore with the same compare-and-swap
// semantics as the PostgreSQL store. Tasks are copied on the way in and out.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task

	// UpdateStatusFn, if set, runs before the conditional write (fault injection)
	UpdateStatusFn func(id string, expected domain.TaskGuard, next domain.TaskStatus) error
}

// NewMockTaskStore creates a new MockTaskStore
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[string]*domain.Task)}
}

func copyTask(t *domain.Task) *domain.Task {
	cp := *t
	cp.Attachments = append([]string{}, t.Attachments...)
	return &cp
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.tasks[task.ID] = copyTask(task)
	return nil
}

func (m *MockTaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTask(t), nil
}

func (m *MockTaskStore) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if filter.Matches(t) {
			result = append(result, copyTask(t))
		}
	}
	sortTasks(result)
	return result, nil
}

func (m *MockTaskStore) ListInStatusSince(ctx context.Context, status domain.TaskStatus, before time.Time) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Task, 0)
	for _, t := range m.tasks {
		if t.Status == status && t.StatusChangedAt.Before(before) {
			result = append(result, copyTask(t))
		}
	}
	sortTasks(result)
	return result, nil
}

// check returns the stored task when its guard still equals expected.
// Caller holds the lock.
func (m *MockTaskStore) check(id string, expected domain.TaskGuard) (*domain.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if t.Guard() != expected {
		return nil, domain.ErrConflict
	}
	return t, nil
}

func (m *MockTaskStore) UpdateStatus(ctx context.Context, id string, expected domain.TaskGuard, next domain.TaskStatus, at time.Time) error {
	if m.UpdateStatusFn != nil {
		if err := m.UpdateStatusFn(id, expected, next); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.check(id, expected)
	if err != nil {
		return err
	}
	t.Status = next
	t.StatusChangedAt = at
	t.UpdatedAt = at
	return nil
}

func (m *MockTaskStore) UpdateDetails(ctx context.Context, task *domain.Task, expected domain.TaskGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.check(task.ID, expected)
	if err != nil {
		return err
	}
	t.Title = task.Title
	t.Description = task.Description
	t.Attachments = append([]string{}, task.Attachments...)
	t.ReviewerID = task.ReviewerID
	t.DueDate = task.DueDate
	t.UpdatedAt = task.UpdatedAt
	return nil
}

func (m *MockTaskStore) UpdateAssignee(ctx context.Context, id string, expected domain.TaskGuard, assignee string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.check(id, expected)
	if err != nil {
		return err
	}
	t.AssignedTo = assignee
	t.UpdatedAt = at
	return nil
}

func (m *MockTaskStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// Add stores tasks directly (test setup)
func (m *MockTaskStore) Add(tasks ...*domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.tasks[t.ID] = copyTask(t)
	}
}

// Status returns the stored status of a task, or "" if unknown
func (m *MockTaskStore) Status(id string) domain.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return t.Status
	}
	return ""
}

func sortTasks(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
