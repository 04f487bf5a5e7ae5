package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

const (
	// Stream names
	jobStream     = "unfold:jobs"
	jobGroup      = "unfold:workers"
	scheduledJobs = "unfold:scheduled"

	// Key prefixes
	jobKeyPrefix = "unfold:job:"
	msgKeyPrefix = "unfold:jobmsg:"

	// Default consumer name prefix
	consumerPrefix = "worker-"

	// Claim timeout - how long before a job is considered abandoned
	claimTimeout = 5 * time.Minute

	// jobTTL outlives the purge window so finished jobs are purged before they expire
	jobTTL = 8 * 24 * time.Hour
)

// Verify interface compliance
var _ driven.JobQueue = (*Queue)(nil)

// Queue implements JobQueue using Redis Streams.
// The stream carries job IDs; the job itself lives as JSON under jobKeyPrefix.
// Delayed and retried jobs wait in a sorted set until they are due.
type Queue struct {
	client       *redis.Client
	consumerName string
}

// NewQueue creates a new Redis-backed job queue.
// The consumerName should be unique per worker instance (e.g., hostname + PID).
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
	}

	err := q.client.XGroupCreateMkStream(context.Background(), jobStream, jobGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue adds a job to the queue for processing.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	return q.EnqueueBatch(ctx, []*domain.Job{job})
}

// EnqueueBatch adds multiple jobs in one pipeline.
func (q *Queue) EnqueueBatch(ctx context.Context, jobs []*domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := q.client.TxPipeline()
	now := time.Now()

	for _, job := range jobs {
		if job == nil {
			continue
		}
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
		}
		pipe.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL)

		if job.ScheduledFor.After(now) {
			pipe.ZAdd(ctx, scheduledJobs, redis.Z{
				Score:  float64(job.ScheduledFor.Unix()),
				Member: job.ID,
			})
		} else {
			pipe.XAdd(ctx, streamArgs(job))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue jobs: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Job, error) {
	return q.next(ctx, 0)
}

// DequeueWithTimeout retrieves the next available job, waiting up to timeout.
// A non-positive timeout checks once without blocking.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	if timeout <= 0 {
		return q.next(ctx, -1)
	}
	return q.next(ctx, timeout)
}

// next reads one job from the stream. block follows XREADGROUP:
// 0 waits forever, negative returns immediately.
func (q *Queue) next(ctx context.Context, block time.Duration) (*domain.Job, error) {
	// Best effort; a failure here only delays retries.
	_ = q.promoteScheduledJobs(ctx)

	if job, err := q.claimAbandonedJob(ctx); err == nil && job != nil {
		return job, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{jobStream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.take(ctx, streams[0].Messages[0])
}

// take loads the job named by msg and marks it processing.
// Messages without a live job are dropped.
func (q *Queue) take(ctx context.Context, msg redis.XMessage) (*domain.Job, error) {
	jobID, ok := msg.Values["job_id"].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	if job == nil {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	job.MarkProcessing()
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL)
	pipe.Set(ctx, msgKeyPrefix+job.ID, msg.ID, jobTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark job processing: %w", err)
	}
	return job, nil
}

// Ack acknowledges successful completion of a job.
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return domain.ErrNotFound
	}
	job.MarkCompleted()
	return q.settle(ctx, job, false)
}

// Nack indicates job processing failed. The job is retried with backoff
// via the scheduled set until MaxAttempts, then marked failed.
func (q *Queue) Nack(ctx context.Context, jobID string, reason string) error {
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return domain.ErrNotFound
	}

	retry := job.CanRetry()
	if retry {
		job.Retry(reason)
	} else {
		job.MarkFailed(reason)
	}
	return q.settle(ctx, job, retry)
}

// settle acks the stream message behind job and stores its new state
func (q *Queue) settle(ctx context.Context, job *domain.Job, reschedule bool) error {
	msgID, err := q.client.Get(ctx, msgKeyPrefix+job.ID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, jobStream, jobGroup, msgID)
		pipe.XDel(ctx, jobStream, msgID)
	}
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, jobTTL)
	if reschedule {
		pipe.ZAdd(ctx, scheduledJobs, redis.Z{
			Score:  float64(job.ScheduledFor.Unix()),
			Member: job.ID,
		})
	}
	pipe.Del(ctx, msgKeyPrefix+job.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to settle job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a job by ID, or nil when unknown.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := q.client.Get(ctx, jobKeyPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// ListJobs retrieves jobs matching the filter, newest first.
// This scans every job key; use it for admin views only.
func (q *Queue) ListJobs(ctx context.Context, filter driven.JobFilter) ([]*domain.Job, error) {
	jobs := make([]*domain.Job, 0)
	err := q.scanJobs(ctx, func(_ string, job *domain.Job) {
		if filter.Status != "" && job.Status != filter.Status {
			return
		}
		if filter.Type != "" && job.Type != filter.Type {
			return
		}
		jobs = append(jobs, job)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []*domain.Job{}, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

// PurgeJobs removes completed/failed jobs last updated before now-olderThan.
func (q *Queue) PurgeJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	var stale []string
	err := q.scanJobs(ctx, func(key string, job *domain.Job) {
		finished := job.Status == domain.JobStatusCompleted || job.Status == domain.JobStatusFailed
		if finished && job.UpdatedAt.Before(cutoff) {
			stale = append(stale, key)
		}
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := q.client.Del(ctx, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return int(n), nil
}

// Stats returns queue statistics.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}
	var oldest time.Time

	err := q.scanJobs(ctx, func(_ string, job *domain.Job) {
		switch job.Status {
		case domain.JobStatusPending:
			stats.PendingCount++
			if oldest.IsZero() || job.CreatedAt.Before(oldest) {
				oldest = job.CreatedAt
			}
		case domain.JobStatusProcessing:
			stats.ProcessingCount++
		case domain.JobStatusCompleted:
			stats.CompletedCount++
		case domain.JobStatusFailed:
			stats.FailedCount++
		}
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestPendingAge = int64(time.Since(oldest).Seconds())
	}
	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close cleans up resources.
func (q *Queue) Close() error {
	// Redis client is shared, don't close it here
	return nil
}

// scanJobs calls fn for every stored job. Undecodable entries are skipped.
func (q *Queue) scanJobs(ctx context.Context, fn func(key string, job *domain.Job)) error {
	iter := q.client.Scan(ctx, 0, jobKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := q.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var job domain.Job
		if err := json.Unmarshal(data, &job); err != nil {
			continue
		}
		fn(key, &job)
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan jobs: %w", err)
	}
	return nil
}

// promoteScheduledJobs moves due delayed jobs onto the stream.
func (q *Queue) promoteScheduledJobs(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledJobs, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	pipe := q.client.TxPipeline()
	for _, jobID := range due {
		pipe.ZRem(ctx, scheduledJobs, jobID)

		job, err := q.GetJob(ctx, jobID)
		if err != nil || job == nil {
			continue
		}
		pipe.XAdd(ctx, streamArgs(job))
	}

	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedJob takes over a message another worker read but never settled.
func (q *Queue) claimAbandonedJob(ctx context.Context) (*domain.Job, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: jobStream,
		Group:  jobGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   jobStream,
			Group:    jobGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		job, err := q.take(ctx, claimed[0])
		if err != nil || job == nil {
			continue
		}
		return job, nil
	}

	return nil, nil
}

func (q *Queue) drop(ctx context.Context, msgID string) {
	q.client.XAck(ctx, jobStream, jobGroup, msgID)
	q.client.XDel(ctx, jobStream, msgID)
}

func streamArgs(job *domain.Job) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: jobStream,
		Values: map[string]any{
			"job_id":   job.ID,
			"type":     string(job.Type),
			"priority": job.Priority,
		},
	}
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
