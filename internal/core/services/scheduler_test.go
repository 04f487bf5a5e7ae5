package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven/mocks"
)

func newTestScheduler(lock *mocks.MockDistributedLock, lockRequired bool) (*mocks.MockSchedulerStore, *mocks.MockJobQueue, *Scheduler) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockJobQueue()
	cfg := SchedulerConfig{
		Store:        store,
		JobQueue:     queue,
		PollInterval: time.Minute,
		LockRequired: lockRequired,
	}
	if lock != nil {
		cfg.Lock = lock
	}
	return store, queue, NewScheduler(cfg)
}

func dueSchedule(id string, jobType domain.JobType) *domain.Schedule {
	s := domain.NewSchedule(id, id, jobType, time.Hour)
	s.NextRun = time.Now().Add(-time.Minute)
	return s
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:    mocks.NewMockSchedulerStore(),
		JobQueue: mocks.NewMockJobQueue(),
	})

	if s.interval != 30*time.Second {
		t.Errorf("expected default interval 30s, got %v", s.interval)
	}
	if s.lockTTL != 60*time.Second {
		t.Errorf("expected default lock TTL 60s, got %v", s.lockTTL)
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	_, _, s := newTestScheduler(nil, false)
	s.interval = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		t.Error("expected scheduler to be running")
	}

	if err := s.Start(ctx); err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	s.Stop()

	s.mu.RLock()
	running = s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler to be stopped")
	}

	s.Stop() // Should not panic
}

func TestScheduler_EnsureSchedules(t *testing.T) {
	store, _, s := newTestScheduler(nil, false)
	ctx := context.Background()

	if err := s.EnsureSchedules(ctx, domain.DefaultSchedules(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A disabled schedule survives a second registration, with the new interval
	if _, err := s.SetEnabled(ctx, "review-reminder", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.EnsureSchedules(ctx, domain.DefaultSchedules(2*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, _ := s.ListSchedules(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(all))
	}
	reminder, _ := store.GetSchedule(ctx, "review-reminder")
	if reminder.Enabled {
		t.Error("expected disabled flag to be kept")
	}
	if reminder.Interval != 2*time.Hour {
		t.Errorf("expected interval to be updated, got %v", reminder.Interval)
	}
}

func TestScheduler_CheckAndEnqueue(t *testing.T) {
	store, queue, s := newTestScheduler(nil, false)
	ctx := context.Background()

	_ = store.SaveSchedule(ctx, dueSchedule("review-reminder", domain.JobTypeReviewReminder))
	notDue := domain.NewSchedule("purge-jobs", "Purge", domain.JobTypePurgeJobs, time.Hour)
	_ = store.SaveSchedule(ctx, notDue)

	s.checkAndEnqueue(ctx)

	if got := len(queue.Enqueued(domain.JobTypeReviewReminder)); got != 1 {
		t.Errorf("expected 1 reminder job, got %d", got)
	}
	if got := len(queue.Enqueued(domain.JobTypePurgeJobs)); got != 0 {
		t.Errorf("expected no purge job, got %d", got)
	}

	updated, _ := store.GetSchedule(ctx, "review-reminder")
	if updated.LastRun == nil || updated.IsDue() {
		t.Error("expected schedule to be pushed forward")
	}
}

func TestScheduler_RecordsEnqueueError(t *testing.T) {
	store, queue, s := newTestScheduler(nil, false)
	ctx := context.Background()
	queue.EnqueueErr = errors.New("queue down")

	_ = store.SaveSchedule(ctx, dueSchedule("purge-jobs", domain.JobTypePurgeJobs))
	s.checkAndEnqueue(ctx)

	updated, _ := store.GetSchedule(ctx, "purge-jobs")
	if updated.LastError != "queue down" {
		t.Errorf("expected last error to be recorded, got %q", updated.LastError)
	}
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(schedulerLockName, time.Minute)
	store, queue, s := newTestScheduler(lock, true)
	ctx := context.Background()

	_ = store.SaveSchedule(ctx, dueSchedule("review-reminder", domain.JobTypeReviewReminder))
	s.checkAndEnqueue(ctx)

	if got := len(queue.Enqueued(domain.JobTypeReviewReminder)); got != 0 {
		t.Errorf("expected no jobs while another instance holds the lock, got %d", got)
	}
}

func TestScheduler_ReleasesLock(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	store, queue, s := newTestScheduler(lock, true)
	ctx := context.Background()

	_ = store.SaveSchedule(ctx, dueSchedule("review-reminder", domain.JobTypeReviewReminder))
	s.checkAndEnqueue(ctx)

	if lock.IsHeld(schedulerLockName) {
		t.Error("expected lock to be released after the cycle")
	}
	if lock.Acquisitions() != 1 {
		t.Errorf("expected 1 acquisition, got %d", lock.Acquisitions())
	}
	if got := len(queue.Enqueued(domain.JobTypeReviewReminder)); got != 1 {
		t.Errorf("expected 1 job, got %d", got)
	}
}

func TestScheduler_LockErrors(t *testing.T) {
	tests := []struct {
		name         string
		lockRequired bool
		wantJobs     int
	}{
		{"required lock skips cycle", true, 0},
		{"optional lock falls through", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lock := mocks.NewMockDistributedLock()
			lock.AcquireFn = func(string, time.Duration) (bool, error) {
				return false, errors.New("redis unavailable")
			}
			store, queue, s := newTestScheduler(lock, tt.lockRequired)
			ctx := context.Background()

			_ = store.SaveSchedule(ctx, dueSchedule("purge-jobs", domain.JobTypePurgeJobs))
			s.checkAndEnqueue(ctx)

			if got := len(queue.Enqueued(domain.JobTypePurgeJobs)); got != tt.wantJobs {
				t.Errorf("expected %d jobs, got %d", tt.wantJobs, got)
			}
		})
	}
}

func TestScheduler_TriggerNow(t *testing.T) {
	store, queue, s := newTestScheduler(nil, false)
	ctx := context.Background()

	_ = store.SaveSchedule(ctx, domain.NewSchedule("purge-jobs", "Purge", domain.JobTypePurgeJobs, time.Hour))

	job, err := s.TriggerNow(ctx, "purge-jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Type != domain.JobTypePurgeJobs || job.Payload["schedule_id"] != "purge-jobs" {
		t.Errorf("unexpected job %+v", job)
	}
	if len(queue.Enqueued(domain.JobTypePurgeJobs)) != 1 {
		t.Error("expected job to be enqueued")
	}

	if _, err := s.TriggerNow(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
