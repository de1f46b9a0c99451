package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

const uniqueViolation = "23505"

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

// Cast commits one ballot in a single transaction. The voter's profile
// row is locked first, which serializes concurrent casts by the same
// principal; the poll row is locked second, in a fixed order so two
// casts can never deadlock. The UNIQUE (poll_id, voter_id) index on
// votes remains the final arbiter should anything slip past the locks.
func (r *voteRepository) Cast(ctx context.Context, ballot ports.CastBallot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkCode(ctx, tx, ballot); err != nil {
		return err
	}
	if err := checkPollOpen(ctx, tx, ballot); err != nil {
		return err
	}

	var belongs int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM poll_options WHERE id = $1 AND poll_id = $2`,
		ballot.OptionID, ballot.PollID,
	).Scan(&belongs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOptionNotFound
		}
		return fmt.Errorf("failed to check option: %w", err)
	}

	// Supersede semantics: a re-vote replaces the prior vote, it never
	// accumulates.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM votes WHERE poll_id = $1 AND voter_id = $2`,
		ballot.PollID, ballot.VoterID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete prior vote: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO votes (id, poll_id, option_id, voter_id, checksum) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), ballot.PollID, ballot.OptionID, ballot.VoterID, ballot.Checksum,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("concurrent vote detected for voter %s: %w", ballot.VoterID, err)
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	// Single use: the code dies in the same transaction as the vote it
	// authorized.
	_, err = tx.ExecContext(ctx,
		`UPDATE principals SET code = NULL, code_expires_at = NULL WHERE id = $1`,
		ballot.VoterID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear code: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO vote_attempts (id, poll_id, voter_id, success, reason, channel) VALUES ($1, $2, $3, TRUE, '', $4)`,
		uuid.New(), ballot.PollID, ballot.VoterID, ballot.Channel,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func checkCode(ctx context.Context, tx *sql.Tx, ballot ports.CastBallot) error {
	var code sql.NullString
	var expiresAt sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT code, code_expires_at FROM principals WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		ballot.VoterID,
	).Scan(&code, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPrincipalNotFound
		}
		return fmt.Errorf("failed to load voter profile: %w", err)
	}

	if !code.Valid || code.String == "" || !expiresAt.Valid {
		return domain.ErrInvalidCode
	}
	if ballot.Now.After(expiresAt.Time) {
		return domain.ErrInvalidCode
	}
	if code.String != ballot.Code {
		return domain.ErrInvalidCode
	}
	return nil
}

func checkPollOpen(ctx context.Context, tx *sql.Tx, ballot ports.CastBallot) error {
	var active bool
	var closesAt time.Time
	err := tx.QueryRowContext(ctx,
		`SELECT active, closes_at FROM polls WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		ballot.PollID,
	).Scan(&active, &closesAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPollNotFound
		}
		return fmt.Errorf("failed to load poll: %w", err)
	}

	if !active || !ballot.Now.Before(closesAt) {
		return domain.ErrPollClosed
	}
	return nil
}

func (r *voteRepository) VoteFor(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_id, checksum, created_at
		FROM votes
		WHERE poll_id = $1 AND voter_id = $2
	`
	vote := &domain.Vote{}
	err := r.db.QueryRowContext(ctx, query, pollID, voterID).Scan(
		&vote.ID, &vote.PollID, &vote.OptionID, &vote.VoterID, &vote.Checksum, &vote.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return vote, nil
}

func (r *voteRepository) Tally(ctx context.Context, pollID uuid.UUID) (*domain.PollTally, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM polls WHERE id = $1 AND deleted_at IS NULL`, pollID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to check poll: %w", err)
	}

	query := `
		SELECT o.id, o.text, COUNT(v.id)
		FROM poll_options o
		LEFT JOIN votes v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.text, o.created_at
		ORDER BY o.created_at, o.id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	defer rows.Close()

	tally := &domain.PollTally{PollID: pollID}
	for rows.Next() {
		var opt domain.OptionTally
		if err := rows.Scan(&opt.OptionID, &opt.Text, &opt.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan tally row: %w", err)
		}
		tally.TotalVotes += opt.Votes
		tally.Options = append(tally.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally: %w", err)
	}

	for i := range tally.Options {
		if tally.TotalVotes > 0 {
			tally.Options[i].Percentage = float64(tally.Options[i].Votes) / float64(tally.TotalVotes) * 100
		}
	}

	return tally, nil
}
