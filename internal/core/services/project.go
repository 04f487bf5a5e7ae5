package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

var _ driving.ProjectService = (*projectService)(nil)

type projectService struct {
	projects driven.ProjectStore
	agencies driven.AgencyStore
	activity driven.ActivityStore
	logger   *slog.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	projects driven.ProjectStore,
	agencies driven.AgencyStore,
	activity driven.ActivityStore,
	logger *slog.Logger,
) driving.ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &projectService{
		projects: projects,
		agencies: agencies,
		activity: activity,
		logger:   logger,
	}
}

// Submit creates a project. Agency users always submit for their own agency;
// project managers must name the agency.
func (s *projectService) Submit(ctx context.Context, actor *domain.User, req driving.SubmitProjectRequest) (*domain.Project, error) {
	var agencyID string
	switch {
	case domain.HasPermission(actor, domain.PermManageProjects):
		agencyID = req.AgencyID
	case domain.HasPermission(actor, domain.PermSubmitProjects):
		agencyID = actor.AgencyID
	default:
		return nil, domain.Deny("submit_projects or manage_projects is required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || agencyID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.agencies.Get(ctx, agencyID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown agency %s", domain.ErrInvalidInput, agencyID)
		}
		return nil, err
	}

	project := domain.NewProject(agencyID, name, strings.TrimSpace(req.Description), actor.ID)
	if err := s.projects.Save(ctx, project); err != nil {
		return nil, err
	}

	s.record(ctx, domain.NewActivity(domain.ActivityProjectSubmitted, project.ID, "", actor.ID,
		fmt.Sprintf("submitted project %q", project.Name)))

	return project, nil
}

// Get returns a project the actor can see
func (s *projectService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Project, error) {
	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewProject(actor, project) {
		return nil, domain.ErrNotFound
	}
	return project, nil
}

// List returns the projects the actor can see
func (s *projectService) List(ctx context.Context, actor *domain.User, status domain.ProjectStatus) ([]*domain.Project, error) {
	if status != "" && !status.Valid() {
		return nil, domain.ErrInvalidInput
	}

	filter := driven.ProjectFilter{Status: status}
	if !domain.HasPermission(actor, domain.PermViewAllData) {
		if actor == nil || actor.Role != domain.RoleAgencyUser || actor.AgencyID == "" {
			return []*domain.Project{}, nil
		}
		filter.AgencyID = actor.AgencyID
	}

	projects, err := s.projects.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.FilterProjects(actor, projects), nil
}

// UpdateStatus moves a project to any status in the fixed set
func (s *projectService) UpdateStatus(ctx context.Context, actor *domain.User, id string, req driving.UpdateProjectStatusRequest) (*domain.Project, error) {
	if !domain.HasPermission(actor, domain.PermManageProjects) {
		return nil, domain.Deny("manage_projects is required")
	}
	status := domain.ProjectStatus(req.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown project status %q", domain.ErrInvalidInput, req.Status)
	}

	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status == status {
		return project, nil
	}

	previous := project.Status
	now := time.Now()
	if err := s.projects.UpdateStatus(ctx, project.ID, previous, status, now); err != nil {
		return nil, err
	}
	project.Status = status
	project.UpdatedAt = now

	s.record(ctx, domain.NewActivity(domain.ActivityProjectStatusChanged, project.ID, "", actor.ID,
		fmt.Sprintf("status %s -> %s", previous, status)))

	return project, nil
}

func (s *projectService) record(ctx context.Context, a *domain.Activity) {
	if err := s.activity.Append(ctx, a); err != nil {
		s.logger.Warn("failed to record activity", "kind", a.Kind, "project_id", a.ProjectID, "error", err)
	}
}
