package domain

import "time"

// Role defines a user's blanket permissions and default visibility scope
type Role string

const (
	RoleSuperAdmin Role = "super_admin" // Everything, including granting super_admin
	RoleAdmin      Role = "admin"       // Oversee the pipeline, manage users
	RoleManager    Role = "manager"     // Assign and review tasks
	RoleDeveloper  Role = "developer"   // Work on tasks assigned to them
	RoleAgencyUser Role = "agency_user" // Submit and follow their agency's projects
)

// Roles lists every known role, most privileged first
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleManager, RoleDeveloper, RoleAgencyUser}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// User represents an account on the dashboard
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	AgencyID     string     `json:"agency_id,omitempty"` // Only for agency_user
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Agency is an external organization submitting projects
type Agency struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary provides a safe view of user data (no password hash)
type UserSummary struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Role        Role         `json:"role"`
	AgencyID    string       `json:"agency_id,omitempty"`
	Active      bool         `json:"active"`
	Permissions []Permission `json:"permissions"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
}

// ToSummary converts a User to UserSummary
func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		AgencyID:    u.AgencyID,
		Active:      u.Active,
		Permissions: PermissionsFor(u.Role),
		LastLoginAt: u.LastLoginAt,
	}
}

// ValidateScope checks the role/agency pairing: agency users need an agency,
// nobody else may carry one.
func (u *User) ValidateScope() error {
	if !u.Role.Valid() {
		return ErrInvalidInput
	}
	if u.Role == RoleAgencyUser && u.AgencyID == "" {
		return ErrInvalidInput
	}
	if u.Role != RoleAgencyUser && u.AgencyID != "" {
		return ErrInvalidInput
	}
	return nil
}
