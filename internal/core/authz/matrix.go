package authz

import "github.com/vecinet/portal/internal/core/domain"

// Matrix maps resource → action → set of roles allowed to perform it.
// It is built once at startup and never mutated afterwards; every
// non-superuser authorization decision in the portal flows through one
// of its entries, so the whole permission surface is auditable here.
type Matrix map[string]map[string]RoleSet

type RoleSet map[domain.Role]struct{}

func Roles(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r domain.Role) bool {
	_, ok := s[r]
	return ok
}

var board = []domain.Role{domain.RolePresident, domain.RoleSecretary, domain.RoleTreasurer}

func everyone() RoleSet {
	return Roles(domain.RolePresident, domain.RoleSecretary, domain.RoleTreasurer,
		domain.RoleAlternate, domain.RoleResident)
}

func boardOnly() RoleSet {
	return Roles(board...)
}

// DefaultMatrix is the portal's capability table. Resources and actions
// are matched case-sensitively; anything absent is denied.
func DefaultMatrix() Matrix {
	return Matrix{
		"users": {
			"view":   boardOnly(),
			"create": Roles(domain.RolePresident, domain.RoleSecretary),
			"edit":   Roles(domain.RolePresident, domain.RoleSecretary),
			"delete": Roles(domain.RolePresident),
			"assign": Roles(domain.RolePresident),
		},
		"meetings": {
			"view":   everyone(),
			"create": Roles(domain.RolePresident, domain.RoleSecretary),
			"edit":   Roles(domain.RolePresident, domain.RoleSecretary),
			"delete": Roles(domain.RolePresident),
		},
		"minutes": {
			"view":    everyone(),
			"create":  Roles(domain.RoleSecretary),
			"edit":    Roles(domain.RoleSecretary),
			"approve": Roles(domain.RolePresident),
			"delete":  Roles(domain.RolePresident),
		},
		"workshops": {
			"view":   everyone(),
			"create": boardOnly(),
			"edit":   boardOnly(),
			"delete": Roles(domain.RolePresident),
		},
		"polls": {
			"view":     everyone(),
			"create":   boardOnly(),
			"edit":     boardOnly(),
			"close":    Roles(domain.RolePresident, domain.RoleSecretary),
			"delete":   Roles(domain.RolePresident),
			"vote":     everyone(),
			"results":  boardOnly(),
			"moderate": Roles(domain.RolePresident, domain.RoleSecretary),
		},
		"notes": {
			"view":     everyone(),
			"create":   everyone(),
			"moderate": boardOnly(),
			"delete":   boardOnly(),
		},
		"resources": {
			"view":   everyone(),
			"create": boardOnly(),
			"edit":   boardOnly(),
			"delete": Roles(domain.RolePresident, domain.RoleTreasurer),
		},
		"reservations": {
			"view":    everyone(),
			"create":  everyone(),
			"approve": Roles(domain.RolePresident, domain.RoleTreasurer),
			"delete":  boardOnly(),
		},
	}
}
