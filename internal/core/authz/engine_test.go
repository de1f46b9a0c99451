package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vecinet/portal/internal/core/domain"
)

func TestCanUnauthenticated(t *testing.T) {
	engine := NewEngine(DefaultMatrix())

	for resource, actions := range DefaultMatrix() {
		for action := range actions {
			assert.False(t, engine.Can(nil, resource, action),
				"nil principal allowed on %s/%s", resource, action)
		}
	}
	assert.False(t, engine.Can(nil, "no-such-resource", "no-such-action"))
}

func TestCanSuperuserBypassesEverything(t *testing.T) {
	engine := NewEngine(DefaultMatrix())
	super := &domain.Principal{Superuser: true}

	for resource, actions := range DefaultMatrix() {
		for action := range actions {
			assert.True(t, engine.Can(super, resource, action),
				"superuser denied on %s/%s", resource, action)
		}
	}

	// The bypass holds even for entries the matrix never mentions.
	assert.True(t, engine.Can(super, "unknown", "unknown"))
	assert.True(t, engine.Can(super, "polls", "nonexistent-action"))
}

func TestCanRequiresRole(t *testing.T) {
	engine := NewEngine(DefaultMatrix())
	roleless := &domain.Principal{}

	assert.False(t, engine.Can(roleless, "polls", "view"))
	assert.False(t, engine.Can(roleless, "meetings", "view"))
}

func TestCanMatrixMembership(t *testing.T) {
	engine := NewEngine(DefaultMatrix())

	tests := []struct {
		name     string
		role     domain.Role
		resource string
		action   string
		want     bool
	}{
		{"president assigns roles", domain.RolePresident, "users", "assign", true},
		{"secretary cannot assign roles", domain.RoleSecretary, "users", "assign", false},
		{"resident views polls", domain.RoleResident, "polls", "view", true},
		{"resident cannot create polls", domain.RoleResident, "polls", "create", false},
		{"treasurer creates polls", domain.RoleTreasurer, "polls", "create", true},
		{"secretary closes polls", domain.RoleSecretary, "polls", "close", true},
		{"treasurer cannot close polls", domain.RoleTreasurer, "polls", "close", false},
		{"alternate votes", domain.RoleAlternate, "polls", "vote", true},
		{"resident cannot preview results", domain.RoleResident, "polls", "results", false},
		{"president previews results", domain.RolePresident, "polls", "results", true},
		{"secretary creates minutes", domain.RoleSecretary, "minutes", "create", true},
		{"president approves minutes", domain.RolePresident, "minutes", "approve", true},
		{"treasurer approves reservations", domain.RoleTreasurer, "reservations", "approve", true},
		{"resident creates reservations", domain.RoleResident, "reservations", "create", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &domain.Principal{Role: tt.role}
			assert.Equal(t, tt.want, engine.Can(p, tt.resource, tt.action))
		})
	}
}

func TestCanUnknownEntriesFailClosed(t *testing.T) {
	engine := NewEngine(DefaultMatrix())
	president := &domain.Principal{Role: domain.RolePresident}

	assert.False(t, engine.Can(president, "spaceships", "launch"))
	assert.False(t, engine.Can(president, "polls", "launch"))
	// Matching is case-sensitive.
	assert.False(t, engine.Can(president, "Polls", "view"))
	assert.False(t, engine.Can(president, "polls", "View"))
}

func TestRoleOf(t *testing.T) {
	engine := NewEngine(DefaultMatrix())

	role, ok := engine.RoleOf(&domain.Principal{Role: domain.RoleTreasurer})
	assert.True(t, ok)
	assert.Equal(t, domain.RoleTreasurer, role)

	_, ok = engine.RoleOf(&domain.Principal{Superuser: true})
	assert.False(t, ok)

	_, ok = engine.RoleOf(nil)
	assert.False(t, ok)
}
