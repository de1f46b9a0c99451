package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

// AttemptRepository writes and reads the append-only vote audit trail.
// Rows are never updated or deleted.
type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) ports.AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Record(ctx context.Context, attempt *domain.VoteAttempt) error {
	query := `
		INSERT INTO vote_attempts (id, poll_id, voter_id, success, reason, channel)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.PollID, attempt.VoterID, attempt.Success, attempt.Reason, attempt.Channel,
	)
	if err != nil {
		return fmt.Errorf("failed to record vote attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.VoteAttempt, error) {
	query := `
		SELECT id, poll_id, voter_id, success, reason, channel, created_at
		FROM vote_attempts
		WHERE poll_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vote attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.VoteAttempt
	for rows.Next() {
		attempt := &domain.VoteAttempt{}
		if err := rows.Scan(
			&attempt.ID, &attempt.PollID, &attempt.VoterID,
			&attempt.Success, &attempt.Reason, &attempt.Channel, &attempt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vote attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vote attempts: %w", err)
	}
	return attempts, nil
}
