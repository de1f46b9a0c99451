package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type PrincipalService struct {
	repo ports.PrincipalRepository
}

func NewPrincipalService(repo ports.PrincipalRepository) *PrincipalService {
	return &PrincipalService{
		repo: repo,
	}
}

func (s *PrincipalService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error) {
	principal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	return principal, nil
}

func (s *PrincipalService) AssignRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Principal, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	principal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	if principal == nil {
		return nil, domain.ErrPrincipalNotFound
	}

	if err := s.repo.AssignRole(ctx, id, role); err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	principal.Role = role
	return principal, nil
}
