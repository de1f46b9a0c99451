package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type PrincipalRepository struct {
	db *sql.DB
}

func NewPrincipalRepository(db *sql.DB) ports.PrincipalRepository {
	return &PrincipalRepository{db: db}
}

const principalColumns = `id, email, name, role, superuser, contact, code, code_expires_at, created_at`

func (r *PrincipalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE email = $1 AND deleted_at IS NULL`
	return r.scanPrincipal(r.db.QueryRowContext(ctx, query, email))
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1 AND deleted_at IS NULL`
	return r.scanPrincipal(r.db.QueryRowContext(ctx, query, id))
}

func (r *PrincipalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	query := `
		INSERT INTO principals (email, name, role, superuser, contact)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, NULLIF($5, ''))
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		principal.Email, principal.Name, string(principal.Role), principal.Superuser, principal.Contact,
	).Scan(&principal.ID, &principal.CreatedAt)
}

func (r *PrincipalRepository) AssignRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	query := `UPDATE principals SET role = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, string(role))
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func (r *PrincipalRepository) SetCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	query := `UPDATE principals SET code = $2, code_expires_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, code, expiresAt)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

func (r *PrincipalRepository) scanPrincipal(row *sql.Row) (*domain.Principal, error) {
	principal := &domain.Principal{}
	var role, name, contact, code sql.NullString
	var codeExpiresAt sql.NullTime

	err := row.Scan(
		&principal.ID, &principal.Email, &name, &role, &principal.Superuser,
		&contact, &code, &codeExpiresAt, &principal.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	principal.Name = name.String
	principal.Contact = contact.String
	principal.Role = domain.Role(role.String)
	principal.Code = code.String
	if codeExpiresAt.Valid {
		principal.CodeExpiresAt = &codeExpiresAt.Time
	}
	return principal, nil
}
