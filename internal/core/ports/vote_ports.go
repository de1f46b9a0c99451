package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
)

// CastBallot carries everything the store needs to commit one vote
// atomically. Checksum is precomputed by the service; Now is the
// service clock so that open/expiry checks inside the transaction agree
// with the rest of the request.
type CastBallot struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	VoterID  uuid.UUID
	Code     string
	Channel  string
	Checksum string
	Now      time.Time
}

type VoteRepository interface {
	// Cast runs the whole vote write in one transaction: re-check the
	// poll is open, verify and consume the one-time code, supersede any
	// prior vote by this voter on this poll, insert the new vote and a
	// success attempt row. Failures surface as domain sentinels
	// (ErrPollNotFound, ErrPollClosed, ErrInvalidCode,
	// ErrOptionNotFound); nothing is committed on failure.
	Cast(ctx context.Context, ballot CastBallot) error
	VoteFor(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
	Tally(ctx context.Context, pollID uuid.UUID) (*domain.PollTally, error)
}

type AttemptRepository interface {
	Record(ctx context.Context, attempt *domain.VoteAttempt) error
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.VoteAttempt, error)
}

type CastVoteInput struct {
	PollID   uuid.UUID
	VoterID  uuid.UUID
	OptionID *uuid.UUID
	Code     string
	Channel  string
}

// VoteReceipt is what the caller sees. Validation failures are not
// errors: they come back as OK=false with one of the fixed reason
// strings, already recorded in the attempt log.
type VoteReceipt struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type CodeIssue struct {
	Delivered bool      `json:"delivered"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message,omitempty"`
}

type VoteService interface {
	RequestCode(ctx context.Context, principalID uuid.UUID) (*CodeIssue, error)
	Cast(ctx context.Context, input CastVoteInput) (*VoteReceipt, error)
	MyVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
	Tally(ctx context.Context, pollID uuid.UUID) (*domain.PollTally, error)
	Attempts(ctx context.Context, pollID uuid.UUID) ([]*domain.VoteAttempt, error)
}
