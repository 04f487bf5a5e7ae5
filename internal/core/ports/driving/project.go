package driving

import (
	"context"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// SubmitProjectRequest represents a new project submission.
// AgencyID is ignored for agency users, whose own agency is always used.
type SubmitProjectRequest struct {
	AgencyID    string `json:"agency_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateProjectStatusRequest moves a project through the pipeline
type UpdateProjectStatusRequest struct {
	Status string `json:"status"`
}

// ProjectService manages agency projects. Reads are visibility filtered.
type ProjectService interface {
	// Submit creates a project in pending_intake
	Submit(ctx context.Context, actor *domain.User, req SubmitProjectRequest) (*domain.Project, error)

	// Get returns a project, or ErrNotFound if the actor cannot see it
	Get(ctx context.Context, actor *domain.User, id string) (*domain.Project, error)

	// List returns the projects visible to the actor, optionally by status
	List(ctx context.Context, actor *domain.User, status domain.ProjectStatus) ([]*domain.Project, error)

	// UpdateStatus sets the project status (manage_projects)
	UpdateStatus(ctx context.Context, actor *domain.User, id string, req UpdateProjectStatusRequest) (*domain.Project, error)
}
