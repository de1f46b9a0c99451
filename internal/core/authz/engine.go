package authz

import "github.com/vecinet/portal/internal/core/domain"

// Engine answers "may this principal perform this action on this
// resource". It holds a reference to an immutable Matrix and keeps no
// other state; decisions are pure and side-effect free.
type Engine struct {
	matrix Matrix
}

func NewEngine(matrix Matrix) *Engine {
	return &Engine{matrix: matrix}
}

// Can evaluates the capability matrix for the given principal. Rules
// apply in order, first match wins:
//
//  1. no session → deny
//  2. superuser → allow, even for resources the matrix never mentions
//  3. no assigned role → deny
//  4. unknown resource or action → deny
//  5. allow iff the principal's role is in the matrix entry
//
// Unknown resources and actions degrade to denial rather than error;
// the gate fails closed.
func (e *Engine) Can(p *domain.Principal, resource, action string) bool {
	if p == nil {
		return false
	}
	if p.Superuser {
		return true
	}
	if !p.HasRole() {
		return false
	}
	actions, ok := e.matrix[resource]
	if !ok {
		return false
	}
	allowed, ok := actions[action]
	if !ok {
		return false
	}
	return allowed.Contains(p.Role)
}

// RoleOf returns the principal's assigned role for display and
// branching. It carries no authorization weight; only Can decides
// access.
func (e *Engine) RoleOf(p *domain.Principal) (domain.Role, bool) {
	if p == nil || !p.HasRole() {
		return "", false
	}
	return p.Role, true
}
