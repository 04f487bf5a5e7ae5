package domain

import "time"

// ProjectStatus tracks where an agency's project sits in the pipeline
type ProjectStatus string

const (
	ProjectStatusPendingIntake  ProjectStatus = "pending_intake"
	ProjectStatusInProgress     ProjectStatus = "in_progress"
	ProjectStatusAwaitingReview ProjectStatus = "awaiting_review"
	ProjectStatusApproved       ProjectStatus = "approved"
	ProjectStatusCompleted      ProjectStatus = "completed"
	ProjectStatusOnHold         ProjectStatus = "on_hold"
)

// Valid reports whether s is one of the fixed project statuses
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPendingIntake, ProjectStatusInProgress, ProjectStatusAwaitingReview,
		ProjectStatusApproved, ProjectStatusCompleted, ProjectStatusOnHold:
		return true
	}
	return false
}

// Project is work submitted by exactly one agency
type Project struct {
	ID          string        `json:"id"`
	AgencyID    string        `json:"agency_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewProject creates a project in pending_intake
func NewProject(agencyID, name, description, createdBy string) *Project {
	now := time.Now()
	return &Project{
		ID:          GenerateID(),
		AgencyID:    agencyID,
		Name:        name,
		Description: description,
		Status:      ProjectStatusPendingIntake,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
