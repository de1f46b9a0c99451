package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/vecinet/portal/internal/adapters/handler/http"
	"github.com/vecinet/portal/internal/adapters/notifier"
	"github.com/vecinet/portal/internal/adapters/repository/postgres"
	"github.com/vecinet/portal/internal/config"
	"github.com/vecinet/portal/internal/core/authz"
	"github.com/vecinet/portal/internal/core/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}),
	)
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	principalRepo := postgres.NewPrincipalRepository(db)
	pollRepo := postgres.NewPollRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	attemptRepo := postgres.NewAttemptRepository(db)

	engine := authz.NewEngine(authz.DefaultMatrix())
	dispatch := notifier.NewLogNotifier(logger)

	pollService := services.NewPollService(pollRepo)
	voteService := services.NewVoteService(
		principalRepo, voteRepo, attemptRepo, dispatch, logger, []byte(cfg.VoteSecret),
	)
	principalService := services.NewPrincipalService(principalRepo)

	handler := http.NewHandler(http.RouterDeps{
		Engine:           engine,
		PollHandler:      http.NewPollHandler(pollService, voteService, engine),
		VoteHandler:      http.NewVoteHandler(voteService),
		PrincipalHandler: http.NewPrincipalHandler(principalService, engine),
		Principals:       principalRepo,
		JWTSecret:        []byte(cfg.JWTSecret),
	})

	server := &stdhttp.Server{Addr: cfg.ListenAddr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
