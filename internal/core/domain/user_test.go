package domain

import (
	"errors"
	"testing"
	"time"
)

func TestUserToSummary(t *testing.T) {
	now := time.Now()
	user := &User{
		ID:           "user-123",
		Email:        "test@example.com",
		PasswordHash: "secret-hash",
		Name:         "Test User",
		Role:         RoleAgencyUser,
		AgencyID:     "agency-1",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  &now,
	}

	summary := user.ToSummary()

	if summary.ID != user.ID {
		t.Errorf("expected ID %s, got %s", user.ID, summary.ID)
	}
	if summary.Email != user.Email {
		t.Errorf("expected Email %s, got %s", user.Email, summary.Email)
	}
	if summary.AgencyID != "agency-1" {
		t.Errorf("expected AgencyID agency-1, got %s", summary.AgencyID)
	}
	if len(summary.Permissions) != 1 || summary.Permissions[0] != PermSubmitProjects {
		t.Errorf("expected [submit_projects], got %v", summary.Permissions)
	}
	if summary.LastLoginAt != user.LastLoginAt {
		t.Error("expected LastLoginAt to match")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	for _, r := range []Role{"", "owner", "ADMIN", "member"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}

func TestRoleConstants(t *testing.T) {
	if RoleSuperAdmin != "super_admin" {
		t.Errorf("expected super_admin, got %s", RoleSuperAdmin)
	}
	if RoleAdmin != "admin" {
		t.Errorf("expected admin, got %s", RoleAdmin)
	}
	if RoleManager != "manager" {
		t.Errorf("expected manager, got %s", RoleManager)
	}
	if RoleDeveloper != "developer" {
		t.Errorf("expected developer, got %s", RoleDeveloper)
	}
	if RoleAgencyUser != "agency_user" {
		t.Errorf("expected agency_user, got %s", RoleAgencyUser)
	}
}

func TestUserValidateScope(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"agency user with agency", User{Role: RoleAgencyUser, AgencyID: "a1"}, false},
		{"agency user without agency", User{Role: RoleAgencyUser}, true},
		{"developer without agency", User{Role: RoleDeveloper}, false},
		{"developer with agency", User{Role: RoleDeveloper, AgencyID: "a1"}, true},
		{"admin with agency", User{Role: RoleAdmin, AgencyID: "a1"}, true},
		{"unknown role", User{Role: "owner"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.ValidateScope()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}
