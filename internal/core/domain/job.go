package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobType identifies the type of background job
type JobType string

const (
	// JobTypeDeliverNotification hands a notification to the transport
	JobTypeDeliverNotification JobType = "deliver_notification"
	// JobTypeReviewReminder nudges reviewers about tasks stuck in review
	JobTypeReviewReminder JobType = "review_reminder"
	// JobTypePurgeJobs removes finished jobs from the queue
	JobTypePurgeJobs JobType = "purge_jobs"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// payloadNotification is the payload key holding a JSON-encoded Notification
const payloadNotification = "notification"

// Job represents a background job to be processed by workers
type Job struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// Type identifies what kind of job this is
	Type JobType `json:"type"`

	// Payload contains job-specific data
	// For deliver_notification: {"notification": "<json>"}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the job
	Status JobStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	// Attempts is how many times this job has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the job should be processed (for delayed jobs)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewJob creates a new job with default values
func NewJob(jobType JobType, payload map[string]string) *Job {
	now := time.Now()
	return &Job{
		ID:           GenerateID(),
		Type:         jobType,
		Payload:      payload,
		Status:       JobStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewNotificationJob wraps a notification for delivery by a worker
func NewNotificationJob(n *Notification) (*Job, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}
	job := NewJob(JobTypeDeliverNotification, map[string]string{payloadNotification: string(data)})
	job.Priority = 10
	return job, nil
}

// Notification decodes the notification carried by a deliver_notification job
func (j *Job) Notification() (*Notification, error) {
	raw, ok := j.Payload[payloadNotification]
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: job %s carries no notification", ErrInvalidInput, j.ID)
	}
	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return nil, fmt.Errorf("%w: decode notification: %v", ErrInvalidInput, err)
	}
	return &n, nil
}

// CanRetry returns true if the job can be retried
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// IsReady returns true if the job is ready to be processed
func (j *Job) IsReady() bool {
	return j.Status == JobStatusPending && !time.Now().Before(j.ScheduledFor)
}

// MarkProcessing updates the job to processing state
func (j *Job) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Attempts++
}

// MarkCompleted updates the job to completed state
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	j.Error = ""
}

// MarkFailed updates the job to failed state
func (j *Job) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.Error = err
}

// Retry resets the job for retry with exponential backoff
func (j *Job) Retry(err string) {
	now := time.Now()
	j.Status = JobStatusPending
	j.UpdatedAt = now
	j.Error = err
	j.ScheduledFor = now.Add(RetryBackoff(j.Attempts))
}

// RetryBackoff is 1s, 2s, 4s... capped at 5 minutes
func RetryBackoff(attempts int) time.Duration {
	if attempts > 9 {
		return 5 * time.Minute
	}
	backoff := time.Duration(1<<attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	return backoff
}

// Schedule is a recurring job configuration
type Schedule struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      JobType       `json:"type"`
	Interval  time.Duration `json:"interval"`
	Enabled   bool          `json:"enabled"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	NextRun   time.Time     `json:"next_run"`
	LastError string        `json:"last_error,omitempty"`
}

// NewSchedule creates an enabled schedule whose first run is one interval away
func NewSchedule(id, name string, jobType JobType, interval time.Duration) *Schedule {
	return &Schedule{
		ID:       id,
		Name:     name,
		Type:     jobType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// IsDue returns true if the schedule should be triggered
func (s *Schedule) IsDue() bool {
	return s.Enabled && !time.Now().Before(s.NextRun)
}

// UpdateNextRun calculates the next run time after execution
func (s *Schedule) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

// DefaultSchedules returns the built-in recurring jobs
func DefaultSchedules(reminderInterval time.Duration) []*Schedule {
	return []*Schedule{
		NewSchedule("review-reminder", "Review Reminder", JobTypeReviewReminder, reminderInterval),
		NewSchedule("purge-jobs", "Purge Finished Jobs", JobTypePurgeJobs, 24*time.Hour),
	}
}
