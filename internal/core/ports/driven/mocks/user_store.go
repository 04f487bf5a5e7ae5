package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

var (
	_ driven.UserStore   = (*MockUserStore)(nil)
	_ driven.AgencyStore = (*MockAgencyStore)(nil)
)

// MockUserStore is a mock implementation of UserStore for testing
type MockUserStore struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]*domain.User
}

// NewMockUserStore creates a new MockUserStore
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *MockUserStore) Save(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byEmail[user.Email]; ok && existing.ID != user.ID {
		return domain.ErrAlreadyExists
	}
	if prev, ok := m.users[user.ID]; ok && prev.Email != user.Email {
		delete(m.byEmail, prev.Email)
	}
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[user.Email] = &cp
	return nil
}

func (m *MockUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MockUserStore) List(ctx context.Context, filter driven.UserFilter) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.AgencyID != "" && user.AgencyID != filter.AgencyID {
			continue
		}
		if filter.ActiveOnly && !user.Active {
			continue
		}
		cp := *user
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockUserStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byEmail, user.Email)
	delete(m.users, id)
	return nil
}

func (m *MockUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

// Add stores users directly (test setup)
func (m *MockUserStore) Add(users ...*domain.User) {
	for _, u := range users {
		_ = m.Save(context.Background(), u)
	}
}

// MockAgencyStore is a mock implementation of AgencyStore for testing
type MockAgencyStore struct {
	mu       sync.RWMutex
	agencies map[string]*domain.Agency
}

// NewMockAgencyStore creates a new MockAgencyStore
func NewMockAgencyStore() *MockAgencyStore {
	return &MockAgencyStore{agencies: make(map[string]*domain.Agency)}
}

func (m *MockAgencyStore) Save(ctx context.Context, agency *domain.Agency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *agency
	m.agencies[agency.ID] = &cp
	return nil
}

func (m *MockAgencyStore) Get(ctx context.Context, id string) (*domain.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agencies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAgencyStore) List(ctx context.Context) ([]*domain.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
