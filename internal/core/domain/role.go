package domain

// Role is the board position held by a principal. A principal holds at
// most one role.
type Role string

const (
	RolePresident Role = "president"
	RoleSecretary Role = "secretary"
	RoleTreasurer Role = "treasurer"
	RoleAlternate Role = "alternate"
	RoleResident  Role = "resident"
)

func (r Role) Valid() bool {
	switch r {
	case RolePresident, RoleSecretary, RoleTreasurer, RoleAlternate, RoleResident:
		return true
	default:
		return false
	}
}
