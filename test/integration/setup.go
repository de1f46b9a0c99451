package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vecinet/portal/internal/adapters/handler/http"
	"github.com/vecinet/portal/internal/adapters/notifier"
	repo "github.com/vecinet/portal/internal/adapters/repository/postgres"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
	"github.com/vecinet/portal/internal/core/services"
)

const (
	testJWTSecret  = "test-secret"
	testVoteSecret = "test-vote-secret"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	Principals  ports.PrincipalRepository
	PollSvc     ports.PollService
	VoteSvc     ports.VoteService
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	err = applyMigrations(db)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	principalRepo := repo.NewPrincipalRepository(db)
	pollRepo := repo.NewPollRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	attemptRepo := repo.NewAttemptRepository(db)

	pollSvc := services.NewPollService(pollRepo)
	voteSvc := services.NewVoteService(principalRepo, voteRepo, attemptRepo,
		notifier.NewLogNotifier(logger), logger, []byte(testVoteSecret))
	principalSvc := services.NewPrincipalService(principalRepo)

	engine := authz.NewEngine(authz.DefaultMatrix())

	router := handler.NewHandler(handler.RouterDeps{
		Engine:           engine,
		PollHandler:      handler.NewPollHandler(pollSvc, voteSvc, engine),
		VoteHandler:      handler.NewVoteHandler(voteSvc),
		PrincipalHandler: handler.NewPrincipalHandler(principalSvc, engine),
		Principals:       principalRepo,
		JWTSecret:        []byte(testJWTSecret),
	})

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Principals:  principalRepo,
		PollSvc:     pollSvc,
		VoteSvc:     voteSvc,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

// seedPrincipal inserts a member directly and returns it with the
// generated id. Contact doubles as the email address.
func (app *TestApp) seedPrincipal(t *testing.T, role domain.Role, superuser bool) *domain.Principal {
	t.Helper()

	email := fmt.Sprintf("%s-%s@vecinet.test", role, uuid.New())
	var id uuid.UUID
	err := app.DB.QueryRow(
		`INSERT INTO principals (email, name, role, superuser, contact)
		 VALUES ($1, $2, $3, $4, $1) RETURNING id`,
		email, fmt.Sprintf("Member %s", role), string(role), superuser,
	).Scan(&id)
	require.NoError(t, err)

	return &domain.Principal{ID: id, Email: email, Role: role, Superuser: superuser, Contact: email}
}

func (app *TestApp) tokenFor(t *testing.T, id uuid.UUID) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": id.String(),
		"exp": time.Now().Add(15 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// request performs an authenticated JSON request. An empty token sends
// the request without a session cookie.
func (app *TestApp) request(t *testing.T, method, path string, payload any, token string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// storedCode reads the one-time code currently on a member's profile.
// The log notifier used in tests only logs the dispatch, so the
// database is where a test observes the issued code.
func (app *TestApp) storedCode(t *testing.T, id uuid.UUID) string {
	t.Helper()

	var code sql.NullString
	err := app.DB.QueryRow("SELECT code FROM principals WHERE id = $1", id).Scan(&code)
	require.NoError(t, err)
	return code.String
}
