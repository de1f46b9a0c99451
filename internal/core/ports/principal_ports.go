package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
)

type PrincipalRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error)
	Create(ctx context.Context, principal *domain.Principal) error
	AssignRole(ctx context.Context, id uuid.UUID, role domain.Role) error
	// SetCode stores a fresh one-time code, overwriting any unused
	// prior code. Clearing on use happens inside VoteRepository.Cast.
	SetCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
}

type PrincipalService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error)
	AssignRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Principal, error)
}
