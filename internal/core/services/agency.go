package services

import (
	"context"
	"strings"
	"time"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

var _ driving.AgencyService = (*agencyService)(nil)

type agencyService struct {
	agencyStore driven.AgencyStore
}

// NewAgencyService creates a new AgencyService
func NewAgencyService(agencyStore driven.AgencyStore) driving.AgencyService {
	return &agencyService{agencyStore: agencyStore}
}

func (s *agencyService) Create(ctx context.Context, actor *domain.User, req driving.CreateAgencyRequest) (*domain.Agency, error) {
	if !domain.HasPermission(actor, domain.PermManageUsers) {
		return nil, domain.Deny("manage_users is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	agency := &domain.Agency{
		ID:        domain.GenerateID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.agencyStore.Save(ctx, agency); err != nil {
		return nil, err
	}
	return agency, nil
}

func (s *agencyService) List(ctx context.Context, actor *domain.User) ([]*domain.Agency, error) {
	if !domain.HasPermission(actor, domain.PermManageUsers) {
		return nil, domain.Deny("manage_users is required")
	}
	return s.agencyStore.List(ctx)
}
