package domain

import (
	"time"

	"github.com/google/uuid"
)

// Principal is an authenticated member of the association. A nil
// *Principal means the request carried no valid session.
type Principal struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role,omitempty"`
	Superuser bool       `json:"superuser"`
	Contact   string     `json:"contact,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// One-time code state, never serialized.
	Code          string     `json:"-"`
	CodeExpiresAt *time.Time `json:"-"`
}

// HasRole reports whether a role has been assigned. Superusers may
// carry no role at all.
func (p *Principal) HasRole() bool {
	return p.Role != ""
}

// CodeValid reports whether the stored one-time code matches and has
// not expired at the given instant.
func (p *Principal) CodeValid(code string, now time.Time) bool {
	if p.Code == "" || p.CodeExpiresAt == nil {
		return false
	}
	if now.After(*p.CodeExpiresAt) {
		return false
	}
	return p.Code == code
}
