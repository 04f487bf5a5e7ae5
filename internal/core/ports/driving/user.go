package driving

import (
	"context"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// CreateUserRequest represents a request to create a new user
type CreateUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	AgencyID string      `json:"agency_id,omitempty"`
}

// UpdateUserRequest represents a request to update a user.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string      `json:"name,omitempty"`
	Role     *domain.Role `json:"role,omitempty"`
	AgencyID *string      `json:"agency_id,omitempty"`
	Active   *bool        `json:"active,omitempty"`
}

// SetupRequest represents a request to create the initial super admin
type SetupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SetupResponse represents the response from the setup endpoint
type SetupResponse struct {
	User    *domain.UserSummary `json:"user"`
	Message string              `json:"message"`
}

// UserService manages user accounts. Every mutation requires manage_users.
type UserService interface {
	// Setup creates the initial super admin (only works if no users exist)
	Setup(ctx context.Context, req SetupRequest) (*SetupResponse, error)

	// Create creates a new user. Only a super admin may create another super admin.
	Create(ctx context.Context, actor *domain.User, req CreateUserRequest) (*domain.User, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// List retrieves users matching the filter
	List(ctx context.Context, actor *domain.User, filter driven.UserFilter) ([]*domain.User, error)

	// Update changes name, role, agency or active flag.
	// A role change or deactivation revokes the user's sessions.
	Update(ctx context.Context, actor *domain.User, id string, req UpdateUserRequest) (*domain.User, error)

	// Delete deletes a user and their sessions
	Delete(ctx context.Context, actor *domain.User, id string) error
}

// CreateAgencyRequest represents a request to register an agency
type CreateAgencyRequest struct {
	Name string `json:"name"`
}

// AgencyService manages agencies (manage_users)
type AgencyService interface {
	Create(ctx context.Context, actor *domain.User, req CreateAgencyRequest) (*domain.Agency, error)
	List(ctx context.Context, actor *domain.User) ([]*domain.Agency, error)
}
