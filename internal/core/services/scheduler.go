package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// schedulerLockName is the distributed lock guarding a scheduling cycle
const schedulerLockName = "scheduler"

// Scheduler enqueues recurring jobs (review reminders, queue purges).
// It runs on worker nodes; with several workers a DistributedLock keeps a
// cycle from enqueuing the same job twice.
type Scheduler struct {
	store    driven.SchedulerStore
	jobQueue driven.JobQueue
	lock     driven.DistributedLock
	logger   *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	// Lock configuration
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Store        driven.SchedulerStore
	JobQueue     driven.JobQueue
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // How often to check for due schedules (default: 30s)
	LockTTL      time.Duration // TTL for the distributed lock (default: 60s)
	LockRequired bool          // If true, skip the cycle when the lock backend errors
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 60 * time.Second
	}

	return &Scheduler{
		store:        cfg.Store,
		jobQueue:     cfg.JobQueue,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the scheduler to finish
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// EnsureSchedules stores any of the given schedules that do not exist yet.
// Existing schedules keep their run history and enabled flag.
func (s *Scheduler) EnsureSchedules(ctx context.Context, defaults []*domain.Schedule) error {
	for _, schedule := range defaults {
		existing, err := s.store.GetSchedule(ctx, schedule.ID)
		if err == nil {
			if existing.Interval != schedule.Interval {
				existing.Interval = schedule.Interval
				if err := s.store.SaveSchedule(ctx, existing); err != nil {
					return err
				}
			}
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := s.store.SaveSchedule(ctx, schedule); err != nil {
			return err
		}
		s.logger.Info("registered schedule", "schedule_id", schedule.ID, "interval", schedule.Interval)
	}
	return nil
}

// checkAndEnqueue enqueues a job for every due schedule.
// With a lock configured, only the instance holding it polls; a lock backend
// error skips the cycle when lockRequired is set.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, schedulerLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(ctx, schedulerLockName); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	schedules, err := s.store.GetDueSchedules(ctx)
	if err != nil {
		s.logger.Error("failed to get due schedules", "error", err)
		return
	}

	for _, schedule := range schedules {
		if !schedule.IsDue() {
			continue
		}

		job := domain.NewJob(schedule.Type, map[string]string{"schedule_id": schedule.ID})
		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Error("failed to enqueue scheduled job",
				"schedule_id", schedule.ID,
				"error", err,
			)
			_ = s.store.UpdateLastRun(ctx, schedule.ID, err.Error())
			continue
		}

		s.logger.Info("enqueued scheduled job",
			"schedule_id", schedule.ID,
			"job_id", job.ID,
			"job_type", job.Type,
		)

		if err := s.store.UpdateLastRun(ctx, schedule.ID, ""); err != nil {
			s.logger.Warn("failed to update schedule last run",
				"schedule_id", schedule.ID,
				"error", err,
			)
		}
	}
}

// ListSchedules lists all recurring schedules.
func (s *Scheduler) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return s.store.ListSchedules(ctx)
}

// SetEnabled turns a schedule on or off.
func (s *Scheduler) SetEnabled(ctx context.Context, id string, enabled bool) (*domain.Schedule, error) {
	schedule, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule.Enabled = enabled
	if err := s.store.SaveSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// TriggerNow immediately enqueues a schedule's job, ignoring its timing.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Job, error) {
	schedule, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	job := domain.NewJob(schedule.Type, map[string]string{"schedule_id": schedule.ID})
	if err := s.jobQueue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered schedule",
		"schedule_id", schedule.ID,
		"job_id", job.ID,
	)

	return job, nil
}
