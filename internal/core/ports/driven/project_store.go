package driven

import (
	"context"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// ProjectFilter narrows project listings. Zero values match everything.
type ProjectFilter struct {
	AgencyID string
	Status   domain.ProjectStatus
}

// ProjectStore handles project persistence (PostgreSQL)
type ProjectStore interface {
	// Save creates or updates a project
	Save(ctx context.Context, project *domain.Project) error

	// Get retrieves a project by ID
	Get(ctx context.Context, id string) (*domain.Project, error)

	// List retrieves projects matching the filter, newest first
	List(ctx context.Context, filter ProjectFilter) ([]*domain.Project, error)

	// UpdateStatus moves a project from expected to next. Returns ErrConflict
	// when the stored status is no longer expected.
	UpdateStatus(ctx context.Context, id string, expected, next domain.ProjectStatus, at time.Time) error
}
