package driven

import (
	"context"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
)

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	Role       domain.Role
	AgencyID   string
	ActiveOnly bool
}

// UserStore handles user persistence (PostgreSQL)
type UserStore interface {
	// Save creates or updates a user
	Save(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List retrieves users matching the filter, ordered by name
	List(ctx context.Context, filter UserFilter) ([]*domain.User, error)

	// Count returns the total number of users
	Count(ctx context.Context) (int, error)

	// Delete deletes a user
	Delete(ctx context.Context, id string) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, id string) error
}

// AgencyStore handles agency persistence (PostgreSQL)
type AgencyStore interface {
	Save(ctx context.Context, agency *domain.Agency) error
	Get(ctx context.Context, id string) (*domain.Agency, error)
	List(ctx context.Context) ([]*domain.Agency, error)
}
