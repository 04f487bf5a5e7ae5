package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

// Ensure userService implements UserService
var _ driving.UserService = (*userService)(nil)

// userService implements the UserService interface
type userService struct {
	userStore    driven.UserStore
	agencyStore  driven.AgencyStore
	sessionStore driven.SessionStore
	authAdapter  driven.AuthAdapter
}

// NewUserService creates a new UserService
func NewUserService(
	userStore driven.UserStore,
	agencyStore driven.AgencyStore,
	sessionStore driven.SessionStore,
	authAdapter driven.AuthAdapter,
) driving.UserService {
	return &userService{
		userStore:    userStore,
		agencyStore:  agencyStore,
		sessionStore: sessionStore,
		authAdapter:  authAdapter,
	}
}

// Setup creates the initial super admin (only works if no users exist)
func (s *userService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, domain.ErrInvalidInput
	}

	count, err := s.userStore.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.Deny("setup has already been completed")
	}

	user, err := s.create(ctx, driving.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.RoleSuperAdmin,
	})
	if err != nil {
		return nil, err
	}

	return &driving.SetupResponse{
		User:    user.ToSummary(),
		Message: "Setup complete. You can now log in.",
	}, nil
}

// Create creates a new user
func (s *userService) Create(ctx context.Context, actor *domain.User, req driving.CreateUserRequest) (*domain.User, error) {
	if err := canGrant(actor, req.Role); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

func (s *userService) create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	user := &domain.User{
		ID:        domain.GenerateID(),
		Email:     normalizeEmail(req.Email),
		Name:      strings.TrimSpace(req.Name),
		Role:      req.Role,
		AgencyID:  req.AgencyID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.validateScope(ctx, user); err != nil {
		return nil, err
	}

	existing, _ := s.userStore.GetByEmail(ctx, user.Email)
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	passwordHash, err := s.authAdapter.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = passwordHash

	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Get retrieves a user by ID
func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.userStore.Get(ctx, id)
}

// List retrieves users matching the filter
func (s *userService) List(ctx context.Context, actor *domain.User, filter driven.UserFilter) ([]*domain.User, error) {
	if !domain.HasPermission(actor, domain.PermManageUsers) {
		return nil, domain.Deny("manage_users is required")
	}
	return s.userStore.List(ctx, filter)
}

// Update changes a user's profile, role or status
func (s *userService) Update(ctx context.Context, actor *domain.User, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	if !domain.HasPermission(actor, domain.PermManageUsers) {
		return nil, domain.Deny("manage_users is required")
	}

	user, err := s.userStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Only a super admin may touch a super admin account
	if user.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return nil, domain.Deny("only a super admin may modify a super admin")
	}

	revoke := false
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, domain.ErrInvalidInput
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil && *req.Role != user.Role {
		if err := canGrant(actor, *req.Role); err != nil {
			return nil, err
		}
		if actor.ID == user.ID {
			return nil, domain.Deny("users cannot change their own role")
		}
		user.Role = *req.Role
		revoke = true
	}
	if req.AgencyID != nil {
		user.AgencyID = *req.AgencyID
	}
	if req.Active != nil && *req.Active != user.Active {
		if actor.ID == user.ID && !*req.Active {
			return nil, domain.Deny("users cannot deactivate themselves")
		}
		user.Active = *req.Active
		revoke = revoke || !user.Active
	}
	if err := s.validateScope(ctx, user); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now()

	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}

	// Outstanding tokens carry the old role; force a fresh login
	if revoke {
		_ = s.sessionStore.DeleteByUser(ctx, id)
	}

	return user, nil
}

// Delete deletes a user and their sessions
func (s *userService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !domain.HasPermission(actor, domain.PermManageUsers) {
		return domain.Deny("manage_users is required")
	}
	if actor.ID == id {
		return domain.Deny("users cannot delete themselves")
	}

	user, err := s.userStore.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return domain.Deny("only a super admin may delete a super admin")
	}

	_ = s.sessionStore.DeleteByUser(ctx, user.ID)

	return s.userStore.Delete(ctx, id)
}

// validateScope checks the role/agency pairing and that the agency exists
func (s *userService) validateScope(ctx context.Context, user *domain.User) error {
	if err := user.ValidateScope(); err != nil {
		return fmt.Errorf("%w: role %q with agency %q", err, user.Role, user.AgencyID)
	}
	if user.AgencyID == "" {
		return nil
	}
	if _, err := s.agencyStore.Get(ctx, user.AgencyID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown agency %s", domain.ErrInvalidInput, user.AgencyID)
		}
		return err
	}
	return nil
}

// canGrant checks that actor may hand out role
func canGrant(actor *domain.User, role domain.Role) error {
	if !domain.HasPermission(actor, domain.PermManageUsers) {
		return domain.Deny("manage_users is required")
	}
	if role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return domain.Deny("only a super admin may grant super_admin")
	}
	return nil
}
