package mocks

import (
	"context"
	"sync"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

var _ driven.ActivityStore = (*MockActivityStore)(nil)

// MockActivityStore is an in-memory append-only ActivityStore
type MockActivityStore struct {
	mu      sync.RWMutex
	entries []*domain.Activity
}

// NewMockActivityStore creates a new MockActivityStore
func NewMockActivityStore() *MockActivityStore {
	return &MockActivityStore{}
}

func (m *MockActivityStore) Append(ctx context.Context, activity *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *activity
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockActivityStore) ListByTask(ctx context.Context, taskID string, limit int) ([]*domain.Activity, error) {
	return m.newest(func(a *domain.Activity) bool { return a.TaskID == taskID }, limit), nil
}

func (m *MockActivityStore) ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.Activity, error) {
	return m.newest(func(a *domain.Activity) bool { return a.ProjectID == projectID }, limit), nil
}

func (m *MockActivityStore) newest(match func(*domain.Activity) bool, limit int) []*domain.Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Activity, 0)
	for i := len(m.entries) - 1; i >= 0; i-- {
		if !match(m.entries[i]) {
			continue
		}
		result = append(result, m.entries[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// Kinds returns the kinds recorded so far, oldest first
func (m *MockActivityStore) Kinds() []domain.ActivityKind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kinds := make([]domain.ActivityKind, 0, len(m.entries))
	for _, a := range m.entries {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}
