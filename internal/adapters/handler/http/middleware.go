package http

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, or nil when
// the request carried no valid session.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	principal, _ := ctx.Value(principalKey).(*domain.Principal)
	return principal
}

// SessionAuth resolves the access_token cookie into a principal and
// stores it on the request context. Requests without a valid session
// pass through unauthenticated; the authorization gate downstream
// decides what they may do.
func SessionAuth(secret []byte, principals ports.PrincipalRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("access_token")
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := uuid.Parse(sub)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := principals.GetByID(r.Context(), id)
			if err != nil || principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on one capability matrix entry.
// Denial is a control-flow branch, not an error: the client gets a
// plain 403 and nothing is raised or logged as a fault.
func RequirePermission(engine *authz.Engine, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if !engine.Can(principal, resource, action) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
