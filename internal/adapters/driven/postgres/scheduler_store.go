package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

const scheduleColumns = `id, name, type, interval_ns, enabled, next_run, last_run, last_error`

// SchedulerStore implements driven.SchedulerStore using PostgreSQL
type SchedulerStore struct {
	db *DB
}

// NewSchedulerStore creates a new SchedulerStore
func NewSchedulerStore(db *DB) *SchedulerStore {
	return &SchedulerStore{db: db}
}

// GetSchedule retrieves a schedule by ID
func (s *SchedulerStore) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	schedule, err := scanSchedule(s.db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return schedule, err
}

// ListSchedules retrieves every schedule, soonest first
func (s *SchedulerStore) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return s.query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY next_run ASC`)
}

// SaveSchedule creates or updates a schedule
func (s *SchedulerStore) SaveSchedule(ctx context.Context, schedule *domain.Schedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			interval_ns = EXCLUDED.interval_ns,
			enabled = EXCLUDED.enabled,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error
	`,
		schedule.ID,
		schedule.Name,
		string(schedule.Type),
		int64(schedule.Interval),
		schedule.Enabled,
		schedule.NextRun,
		NullTime(schedule.LastRun),
		schedule.LastError,
	)
	return err
}

// GetDueSchedules retrieves enabled schedules whose next run has passed
func (s *SchedulerStore) GetDueSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return s.query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE enabled = true AND next_run <= $1
		ORDER BY next_run ASC
	`, time.Now())
}

// UpdateLastRun stamps the run and pushes next_run one interval ahead
func (s *SchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET last_run = $2,
			next_run = $2 + (interval_ns / 1000) * INTERVAL '1 microsecond',
			last_error = $3
		WHERE id = $1
	`, id, now, lastError)
	if err != nil {
		return err
	}
	return expectOne(result)
}

func (s *SchedulerStore) query(ctx context.Context, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		schedule   domain.Schedule
		intervalNs int64
		lastRun    sql.NullTime
	)
	err := row.Scan(
		&schedule.ID,
		&schedule.Name,
		&schedule.Type,
		&intervalNs,
		&schedule.Enabled,
		&schedule.NextRun,
		&lastRun,
		&schedule.LastError,
	)
	if err != nil {
		return nil, err
	}
	schedule.Interval = time.Duration(intervalNs)
	schedule.LastRun = TimePtr(lastRun)
	return &schedule, nil
}
