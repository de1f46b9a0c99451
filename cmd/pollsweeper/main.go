package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/vecinet/portal/internal/adapters/notifier"
	"github.com/vecinet/portal/internal/adapters/repository/postgres"
	"github.com/vecinet/portal/internal/config"
	"github.com/vecinet/portal/internal/core/services"
)

// Batch job that closes overdue polls and announces results to their
// creators. Reads still close lazily on their own; this just keeps the
// window small. Intended to run from cron.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

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

	sweeper := services.NewSweepService(
		postgres.NewPollRepository(db),
		postgres.NewVoteRepository(db),
		postgres.NewPrincipalRepository(db),
		notifier.NewLogNotifier(logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("starting poll sweep")

	closed, err := sweeper.SweepDuePolls(ctx)
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}

	logger.Info("poll sweep completed", "closed", closed)
}
