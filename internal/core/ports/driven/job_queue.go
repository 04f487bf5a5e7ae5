package driven

import (
	"context"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// JobQueue handles background job queuing and processing.
// Implementations can use Redis (preferred) or Postgres (fallback).
type JobQueue interface {
	// Enqueue adds a job to the queue for processing.
	// The job will be picked up by a worker based on priority and scheduled time.
	Enqueue(ctx context.Context, job *domain.Job) error

	// EnqueueBatch adds multiple jobs to the queue atomically.
	EnqueueBatch(ctx context.Context, jobs []*domain.Job) error

	// Dequeue blocks until a job is available or ctx is cancelled.
	// The job is marked as processing and will not be returned to other workers.
	Dequeue(ctx context.Context) (*domain.Job, error)

	// DequeueWithTimeout retrieves the next available job, waiting up to timeout.
	// Returns nil, nil if timeout is reached with no jobs available.
	DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error)

	// Ack acknowledges successful completion of a job.
	Ack(ctx context.Context, jobID string) error

	// Nack indicates job processing failed. The job is retried with backoff
	// until MaxAttempts, then moved to failed.
	Nack(ctx context.Context, jobID string, reason string) error

	// GetJob retrieves a job by ID. Returns nil, nil when unknown.
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)

	// ListJobs retrieves jobs matching the filter criteria.
	ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error)

	// PurgeJobs removes completed/failed jobs last updated before now-olderThan.
	PurgeJobs(ctx context.Context, olderThan time.Duration) (int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// JobFilter specifies criteria for listing jobs
type JobFilter struct {
	// Status filters by job status (optional, empty means all)
	Status domain.JobStatus

	// Type filters by job type (optional, empty means all)
	Type domain.JobType

	// Limit is the maximum number of jobs to return
	Limit int

	// Offset is the number of jobs to skip (for pagination)
	Offset int
}

// QueueStats contains queue statistics
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`

	// OldestPendingAge is the age of the oldest pending job in seconds
	OldestPendingAge int64 `json:"oldest_pending_age"`
}

// SchedulerStore handles persistence for recurring job schedules.
// Schedules are configuration, not transient queue items.
type SchedulerStore interface {
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	ListSchedules(ctx context.Context) ([]*domain.Schedule, error)
	SaveSchedule(ctx context.Context, schedule *domain.Schedule) error
	GetDueSchedules(ctx context.Context) ([]*domain.Schedule, error)

	// UpdateLastRun records a run and pushes NextRun forward by the interval
	UpdateLastRun(ctx context.Context, id string, lastError string) error
}
