package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecinet/portal/internal/adapters/repository/memory"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/domain"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, id uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": id.String(),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func seedMember(t *testing.T, store *memory.Store, role domain.Role, superuser bool) *domain.Principal {
	t.Helper()

	p := &domain.Principal{
		Email:     string(role) + "@vecinet.test",
		Role:      role,
		Superuser: superuser,
	}
	require.NoError(t, store.Principals().Create(context.Background(), p))
	return p
}

// gatedEndpoint wires the session middleware and one permission gate in
// front of a trivial handler.
func gatedEndpoint(store *memory.Store, resource, action string) http.Handler {
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	engine := authz.NewEngine(authz.DefaultMatrix())
	return SessionAuth([]byte(testSecret), store.Principals())(
		RequirePermission(engine, resource, action)(probe))
}

func doRequest(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/polls", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPermissionGate(t *testing.T) {
	store := memory.NewStore()
	secretary := seedMember(t, store, domain.RoleSecretary, false)
	resident := seedMember(t, store, domain.RoleResident, false)
	admin := seedMember(t, store, "", true)

	handler := gatedEndpoint(store, "polls", "create")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no session", "", http.StatusForbidden},
		{"garbage token", "not-a-jwt", http.StatusForbidden},
		{"wrong signing key", signToken(t, "other-secret", secretary.ID), http.StatusForbidden},
		{"unknown member", signToken(t, testSecret, uuid.New()), http.StatusForbidden},
		{"insufficient role", signToken(t, testSecret, resident.ID), http.StatusForbidden},
		{"sufficient role", signToken(t, testSecret, secretary.ID), http.StatusOK},
		{"superuser without role", signToken(t, testSecret, admin.ID), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, tt.token)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestUnknownResourceIsDenied(t *testing.T) {
	store := memory.NewStore()
	secretary := seedMember(t, store, domain.RoleSecretary, false)

	handler := gatedEndpoint(store, "ledgers", "view")
	rec := doRequest(handler, signToken(t, testSecret, secretary.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionAuthResolvesPrincipal(t *testing.T) {
	store := memory.NewStore()
	resident := seedMember(t, store, domain.RoleResident, false)

	var seen *domain.Principal
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := SessionAuth([]byte(testSecret), store.Principals())(probe)

	rec := doRequest(handler, signToken(t, testSecret, resident.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, resident.ID, seen.ID)

	// Without a cookie the request still reaches the handler, just
	// anonymously. Gates downstream decide what anonymous may do.
	seen = nil
	rec = doRequest(handler, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}
