package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven/mocks"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

type projectFixture struct {
	projects *mocks.MockProjectStore
	activity *mocks.MockActivityStore
	svc      driving.ProjectService

	admin, dev, agentA1, agentA2 *domain.User
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	agencies := mocks.NewMockAgencyStore()
	ctx := context.Background()
	_ = agencies.Save(ctx, &domain.Agency{ID: "a1", Name: "Acme"})
	_ = agencies.Save(ctx, &domain.Agency{ID: "a2", Name: "Globex"})

	f := &projectFixture{
		projects: mocks.NewMockProjectStore(),
		activity: mocks.NewMockActivityStore(),
		admin:    &domain.User{ID: "admin", Role: domain.RoleAdmin, Active: true},
		dev:      &domain.User{ID: "dev", Role: domain.RoleDeveloper, Active: true},
		agentA1:  &domain.User{ID: "agent1", Role: domain.RoleAgencyUser, AgencyID: "a1", Active: true},
		agentA2:  &domain.User{ID: "agent2", Role: domain.RoleAgencyUser, AgencyID: "a2", Active: true},
	}
	f.svc = NewProjectService(f.projects, agencies, f.activity, nil)
	return f
}

func TestProjectService_Submit(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	// Agency users always submit for their own agency
	project, err := f.svc.Submit(ctx, f.agentA1, driving.SubmitProjectRequest{AgencyID: "a2", Name: " Rebrand "})
	require.NoError(t, err)
	assert.Equal(t, "a1", project.AgencyID)
	assert.Equal(t, "Rebrand", project.Name)
	assert.Equal(t, domain.ProjectStatusPendingIntake, project.Status)
	assert.Equal(t, []domain.ActivityKind{domain.ActivityProjectSubmitted}, f.activity.Kinds())

	project, err = f.svc.Submit(ctx, f.admin, driving.SubmitProjectRequest{AgencyID: "a2", Name: "Portal"})
	require.NoError(t, err)
	assert.Equal(t, "a2", project.AgencyID)

	_, err = f.svc.Submit(ctx, f.dev, driving.SubmitProjectRequest{AgencyID: "a1", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Submit(ctx, f.admin, driving.SubmitProjectRequest{Name: "No agency"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Submit(ctx, f.admin, driving.SubmitProjectRequest{AgencyID: "ghost", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Submit(ctx, f.agentA1, driving.SubmitProjectRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProjectService_AgencyIsolation(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	f.projects.Add(
		&domain.Project{ID: "p1", AgencyID: "a1", Name: "One", Status: domain.ProjectStatusInProgress},
		&domain.Project{ID: "p2", AgencyID: "a2", Name: "Two", Status: domain.ProjectStatusInProgress},
	)

	visible, err := f.svc.List(ctx, f.agentA1, "")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "p1", visible[0].ID)

	_, err = f.svc.Get(ctx, f.agentA1, "p2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.Get(ctx, f.agentA2, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Two", got.Name)

	all, err := f.svc.List(ctx, f.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.List(ctx, f.dev, "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	orphan := &domain.User{ID: "orphan", Role: domain.RoleAgencyUser, Active: true}
	none, err = f.svc.List(ctx, orphan, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.List(ctx, f.admin, "archived")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProjectService_UpdateStatus(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	f.projects.Add(&domain.Project{ID: "p1", AgencyID: "a1", Name: "One", Status: domain.ProjectStatusPendingIntake})

	_, err := f.svc.UpdateStatus(ctx, f.agentA1, "p1", driving.UpdateProjectStatusRequest{Status: "in_progress"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.admin, "p1", driving.UpdateProjectStatusRequest{Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.UpdateStatus(ctx, f.admin, "nope", driving.UpdateProjectStatusRequest{Status: "on_hold"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Any status in the fixed set is reachable, including backwards
	for _, status := range []string{"completed", "on_hold", "pending_intake"} {
		project, err := f.svc.UpdateStatus(ctx, f.admin, "p1", driving.UpdateProjectStatusRequest{Status: status})
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectStatus(status), project.Status)
	}

	// Unchanged status records nothing
	_, err = f.svc.UpdateStatus(ctx, f.admin, "p1", driving.UpdateProjectStatusRequest{Status: "pending_intake"})
	require.NoError(t, err)
	assert.Len(t, f.activity.Kinds(), 3)
}

func TestProjectService_UpdateStatusConflict(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	f.projects.Add(&domain.Project{ID: "p1", AgencyID: "a1", Name: "One", Status: domain.ProjectStatusPendingIntake})

	// Another admin puts the project on hold after this request read it
	f.projects.UpdateStatusFn = func(id string, expected, next domain.ProjectStatus) error {
		f.projects.UpdateStatusFn = nil
		return f.projects.UpdateStatus(ctx, id, expected, domain.ProjectStatusOnHold, time.Now())
	}

	_, err := f.svc.UpdateStatus(ctx, f.admin, "p1", driving.UpdateProjectStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := f.projects.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusOnHold, stored.Status)
	assert.Empty(t, f.activity.Kinds())
}
