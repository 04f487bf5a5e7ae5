package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

var _ driven.ProjectStore = (*MockProjectStore)(nil)

// MockProjectStore is a mock implementation of ProjectStore for testing
type MockProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project

	// UpdateStatusFn, if set, runs before the conditional write (fault injection)
	UpdateStatusFn func(id string, expected, next domain.ProjectStatus) error
}

// NewMockProjectStore creates a new MockProjectStore
func NewMockProjectStore() *MockProjectStore {
	return &MockProjectStore{projects: make(map[string]*domain.Project)}
}

func (m *MockProjectStore) Save(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *MockProjectStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProjectStore) List(ctx context.Context, filter driven.ProjectFilter) ([]*domain.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		if filter.AgencyID != "" && p.AgencyID != filter.AgencyID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockProjectStore) UpdateStatus(ctx context.Context, id string, expected, next domain.ProjectStatus, at time.Time) error {
	if m.UpdateStatusFn != nil {
		if err := m.UpdateStatusFn(id, expected, next); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != expected {
		return domain.ErrConflict
	}
	p.Status = next
	p.UpdatedAt = at
	return nil
}

// Add stores projects directly (test setup)
func (m *MockProjectStore) Add(projects ...*domain.Project) {
	for _, p := range projects {
		_ = m.Save(context.Background(), p)
	}
}
