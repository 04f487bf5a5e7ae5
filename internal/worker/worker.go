package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
	"github.com/unfoldcro/unfold-core/internal/core/services"
)

const (
	// DefaultDequeueTimeout is how long one dequeue waits before re-checking for shutdown
	DefaultDequeueTimeout = 5 * time.Second

	// DefaultPurgeAfter is the age at which finished jobs are removed
	DefaultPurgeAfter = 7 * 24 * time.Hour
)

var jobsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "unfold_jobs_processed_total",
		Help: "Background jobs processed, by type and result.",
	},
	[]string{"type", "result"},
)

// Worker processes jobs from the job queue: it delivers notifications,
// sends review reminders and purges finished jobs.
type Worker struct {
	queue     driven.JobQueue
	transport driven.NotificationTransport
	reminders driving.ReminderService
	scheduler *services.Scheduler
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout time.Duration
	purgeAfter     time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	Queue          driven.JobQueue
	Transport      driven.NotificationTransport
	Reminders      driving.ReminderService
	Scheduler      *services.Scheduler // optional
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent job processors
	DequeueTimeout time.Duration // Wait for a job before checking for shutdown
	PurgeAfter     time.Duration // Age of finished jobs removed by purge_jobs
}

// New creates a new job worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = DefaultDequeueTimeout
	}

	purgeAfter := cfg.PurgeAfter
	if purgeAfter <= 0 {
		purgeAfter = DefaultPurgeAfter
	}

	return &Worker{
		queue:          cfg.Queue,
		transport:      cfg.Transport,
		reminders:      cfg.Reminders,
		scheduler:      cfg.Scheduler,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		purgeAfter:     purgeAfter,
	}
}

// Start launches the processing goroutines and the scheduler, if any.
// It returns immediately; call Stop to shut down.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
		"transport", w.transport.Name(),
	)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker, letting in-flight jobs finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		job, err := w.queue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue job", "error", err)
			select {
			case <-ctx.Done():
			case <-w.stopCh:
			case <-time.After(time.Second):
			}
			continue
		}

		if job == nil {
			continue
		}

		w.processJob(ctx, job, logger)
	}
}

// processJob runs one job and acks or nacks it.
func (w *Worker) processJob(ctx context.Context, job *domain.Job, logger *slog.Logger) {
	logger = logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempts)

	start := time.Now()
	err := w.handle(ctx, job, logger)
	duration := time.Since(start)

	if err != nil {
		logger.Error("job failed", "duration", duration, "error", err)
		jobsProcessedTotal.WithLabelValues(string(job.Type), "failure").Inc()

		if nackErr := w.queue.Nack(ctx, job.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack job", "nack_error", nackErr)
		}
		return
	}

	logger.Info("job completed", "duration", duration)
	jobsProcessedTotal.WithLabelValues(string(job.Type), "success").Inc()

	if ackErr := w.queue.Ack(ctx, job.ID); ackErr != nil {
		logger.Error("failed to ack job", "ack_error", ackErr)
	}
}

func (w *Worker) handle(ctx context.Context, job *domain.Job, logger *slog.Logger) error {
	switch job.Type {
	case domain.JobTypeDeliverNotification:
		return w.deliverNotification(ctx, job)
	case domain.JobTypeReviewReminder:
		sent, err := w.reminders.SendReviewReminders(ctx)
		if err != nil {
			return err
		}
		logger.Info("review reminders queued", "sent", sent)
		return nil
	case domain.JobTypePurgeJobs:
		purged, err := w.queue.PurgeJobs(ctx, w.purgeAfter)
		if err != nil {
			return err
		}
		logger.Info("finished jobs purged", "purged", purged)
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) deliverNotification(ctx context.Context, job *domain.Job) error {
	n, err := job.Notification()
	if err != nil {
		return err
	}
	if err := w.transport.Deliver(ctx, n); err != nil {
		return fmt.Errorf("%s transport: %w", w.transport.Name(), err)
	}
	return nil
}

// Health is the worker's health snapshot.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running, QueueHealth: true}
	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	}
	return health
}
