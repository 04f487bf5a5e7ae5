package mocks

import (
	"context"
	"sync"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

var (
	_ driven.NotificationDispatcher = (*MockDispatcher)(nil)
	_ driven.NotificationTransport  = (*MockTransport)(nil)
)

// MockDispatcher records dispatched notifications
type MockDispatcher struct {
	mu   sync.Mutex
	sent []*domain.Notification

	// Err, if set, is returned from every Dispatch after recording
	Err error
}

// NewMockDispatcher creates a new MockDispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.Err
}

// Sent returns everything dispatched so far
func (m *MockDispatcher) Sent() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Notification(nil), m.sent...)
}

// Reset forgets recorded notifications
func (m *MockDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// MockTransport records delivered notifications
type MockTransport struct {
	mu        sync.Mutex
	delivered []*domain.Notification

	// DeliverFn, if set, decides the outcome of each delivery
	DeliverFn func(n *domain.Notification) error
}

// NewMockTransport creates a new MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Name() string { return "mock" }

func (m *MockTransport) Deliver(ctx context.Context, n *domain.Notification) error {
	if m.DeliverFn != nil {
		if err := m.DeliverFn(n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, n)
	return nil
}

// Delivered returns everything delivered so far
func (m *MockTransport) Delivered() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Notification(nil), m.delivered...)
}
