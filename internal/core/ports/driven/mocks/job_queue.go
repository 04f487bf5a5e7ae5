package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

var (
	_ driven.JobQueue       = (*MockJobQueue)(nil)
	_ driven.SchedulerStore = (*MockSchedulerStore)(nil)
)

// MockJobQueue is an in-memory FIFO JobQueue for testing
type MockJobQueue struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	pending []string
	acked   []string
	nacked  []string

	// EnqueueErr, if set, fails every Enqueue
	EnqueueErr error
}

// NewMockJobQueue creates a new MockJobQueue
func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{jobs: make(map[string]*domain.Job)}
}

func (m *MockJobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	cp := *job
	m.jobs[job.ID] = &cp
	m.pending = append(m.pending, job.ID)
	return nil
}

func (m *MockJobQueue) EnqueueBatch(ctx context.Context, jobs []*domain.Job) error {
	for _, j := range jobs {
		if err := m.Enqueue(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockJobQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	return m.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout returns the first ready job, or nil after a short wait
func (m *MockJobQueue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	m.mu.Lock()
	for i, id := range m.pending {
		job := m.jobs[id]
		if !job.IsReady() {
			continue
		}
		m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
		job.MarkProcessing()
		cp := *job
		m.mu.Unlock()
		return &cp, nil
	}
	m.mu.Unlock()

	wait := 10 * time.Millisecond
	if timeout > 0 && timeout < wait {
		wait = timeout
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
	return nil, nil
}

func (m *MockJobQueue) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.MarkCompleted()
	m.acked = append(m.acked, jobID)
	return nil
}

// Nack retries immediately (no backoff) until MaxAttempts, then fails the job
func (m *MockJobQueue) Nack(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	m.nacked = append(m.nacked, jobID)
	if job.CanRetry() {
		job.Status = domain.JobStatusPending
		job.Error = reason
		m.pending = append(m.pending, jobID)
		return nil
	}
	job.MarkFailed(reason)
	return nil
}

func (m *MockJobQueue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobQueue) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Job, 0)
	for _, job := range m.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		cp := *job
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockJobQueue) PurgeJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	purged := 0
	for id, job := range m.jobs {
		finished := job.Status == domain.JobStatusCompleted || job.Status == domain.JobStatusFailed
		if finished && job.UpdatedAt.Before(cutoff) {
			delete(m.jobs, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MockJobQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &driven.QueueStats{}
	for _, job := range m.jobs {
		switch job.Status {
		case domain.JobStatusPending:
			stats.PendingCount++
		case domain.JobStatusProcessing:
			stats.ProcessingCount++
		case domain.JobStatusCompleted:
			stats.CompletedCount++
		case domain.JobStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (m *MockJobQueue) Ping(ctx context.Context) error { return nil }

func (m *MockJobQueue) Close() error { return nil }

// Enqueued returns every job ever enqueued, by type
func (m *MockJobQueue) Enqueued(jobType domain.JobType) []*domain.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Job, 0)
	for _, job := range m.jobs {
		if job.Type == jobType {
			cp := *job
			result = append(result, &cp)
		}
	}
	return result
}

// Acked returns the IDs acknowledged so far
func (m *MockJobQueue) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// Nacked returns the IDs negatively acknowledged so far
func (m *MockJobQueue) Nacked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nacked...)
}

// MockSchedulerStore is an in-memory SchedulerStore
type MockSchedulerStore struct {
	mu        sync.Mutex
	schedules map[string]*domain.Schedule
}

// NewMockSchedulerStore creates a new MockSchedulerStore
func NewMockSchedulerStore() *MockSchedulerStore {
	return &MockSchedulerStore{schedules: make(map[string]*domain.Schedule)}
}

func (m *MockSchedulerStore) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSchedulerStore) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		cp := *s
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockSchedulerStore) SaveSchedule(ctx context.Context, schedule *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *schedule
	m.schedules[schedule.ID] = &cp
	return nil
}

func (m *MockSchedulerStore) GetDueSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Schedule, 0)
	for _, s := range m.schedules {
		if s.IsDue() {
			cp := *s
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockSchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.UpdateNextRun()
	s.LastError = lastError
	return nil
}
