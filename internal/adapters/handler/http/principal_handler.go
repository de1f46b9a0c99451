package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type PrincipalHandler struct {
	service ports.PrincipalService
	engine  *authz.Engine
}

func NewPrincipalHandler(service ports.PrincipalService, engine *authz.Engine) *PrincipalHandler {
	return &PrincipalHandler{
		service: service,
		engine:  engine,
	}
}

func (h *PrincipalHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	role, _ := h.engine.RoleOf(principal)

	writeJSON(w, http.StatusOK, struct {
		*domain.Principal
		DisplayRole domain.Role `json:"display_role,omitempty"`
	}{principal, role})
}

type assignRoleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *PrincipalHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid principal id", http.StatusBadRequest)
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	principal, err := h.service.AssignRole(r.Context(), id, req.Role)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRole) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, principal)
}
