package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

const codeTTL = 5 * time.Minute

type voteService struct {
	principalRepo ports.PrincipalRepository
	voteRepo      ports.VoteRepository
	attemptRepo   ports.AttemptRepository
	notifier      ports.Notifier
	logger        *slog.Logger
	voteSecret    []byte
	now           func() time.Time
}

func NewVoteService(
	principalRepo ports.PrincipalRepository,
	voteRepo ports.VoteRepository,
	attemptRepo ports.AttemptRepository,
	notifier ports.Notifier,
	logger *slog.Logger,
	voteSecret []byte,
) ports.VoteService {
	return &voteService{
		principalRepo: principalRepo,
		voteRepo:      voteRepo,
		attemptRepo:   attemptRepo,
		notifier:      notifier,
		logger:        logger,
		voteSecret:    voteSecret,
		now:           time.Now,
	}
}

// RequestCode issues a fresh 6-digit code valid for five minutes and
// dispatches it to the member's registered contact. A newly issued code
// overwrites any unused prior one. When dispatch fails the code stays
// valid until it expires; the caller is told delivery did not happen.
func (s *voteService) RequestCode(ctx context.Context, principalID uuid.UUID) (*ports.CodeIssue, error) {
	principal, err := s.principalRepo.GetByID(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	if principal == nil {
		return nil, domain.ErrPrincipalNotFound
	}
	if principal.Contact == "" {
		return nil, domain.ErrNoContactAddress
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	expiresAt := s.now().Add(codeTTL)
	if err := s.principalRepo.SetCode(ctx, principal.ID, code, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store code: %w", err)
	}

	body := fmt.Sprintf("Your voting code is %s. It expires in 5 minutes.", code)
	if err := s.notifier.Send(ctx, principal.Contact, "Voting code", body); err != nil {
		s.logger.Warn("code dispatch failed",
			"principal_id", principal.ID, "error", err)
		return &ports.CodeIssue{
			Delivered: false,
			ExpiresAt: expiresAt,
			Message:   "code generated but delivery failed",
		}, nil
	}

	return &ports.CodeIssue{Delivered: true, ExpiresAt: expiresAt}, nil
}

// Cast validates and commits one vote. Checks run in a fixed order and
// the first failure wins: option present, code present, code valid,
// poll open, option belongs to poll. Everything past the presence
// checks happens inside a single store transaction together with the
// vote write, the code invalidation and the success attempt row.
// Validation failures are not errors: they come back as a receipt with
// the fixed reason string, and each one is recorded in the attempt log
// before returning.
func (s *voteService) Cast(ctx context.Context, input ports.CastVoteInput) (*ports.VoteReceipt, error) {
	if input.OptionID == nil {
		return s.reject(ctx, input, domain.ReasonMissingOption), nil
	}
	if input.Code == "" {
		return s.reject(ctx, input, domain.ReasonMissingCode), nil
	}

	ballot := ports.CastBallot{
		PollID:   input.PollID,
		OptionID: *input.OptionID,
		VoterID:  input.VoterID,
		Code:     input.Code,
		Channel:  input.Channel,
		Checksum: domain.VoteChecksum(s.voteSecret, input.VoterID, *input.OptionID),
		Now:      s.now(),
	}

	err := s.voteRepo.Cast(ctx, ballot)
	switch {
	case err == nil:
		return &ports.VoteReceipt{OK: true, Message: "vote recorded"}, nil
	case errors.Is(err, domain.ErrInvalidCode):
		return s.reject(ctx, input, domain.ReasonInvalidCode), nil
	case errors.Is(err, domain.ErrPollClosed):
		return s.reject(ctx, input, domain.ReasonPollClosed), nil
	default:
		// Poll/option mismatch and unknown polls are structurally
		// invalid requests, not vote failures; they surface as errors
		// and are not written to the attempt log.
		return nil, err
	}
}

func (s *voteService) MyVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	return s.voteRepo.VoteFor(ctx, pollID, voterID)
}

func (s *voteService) Tally(ctx context.Context, pollID uuid.UUID) (*domain.PollTally, error) {
	return s.voteRepo.Tally(ctx, pollID)
}

func (s *voteService) Attempts(ctx context.Context, pollID uuid.UUID) ([]*domain.VoteAttempt, error) {
	return s.attemptRepo.ListByPoll(ctx, pollID)
}

// reject records a failed attempt and builds the caller-facing receipt.
// The attempt write is best effort: an audit insert failure must never
// change the outcome of the vote operation, so errors are logged and
// dropped.
func (s *voteService) reject(ctx context.Context, input ports.CastVoteInput, reason string) *ports.VoteReceipt {
	attempt := &domain.VoteAttempt{
		ID:        uuid.New(),
		PollID:    input.PollID,
		VoterID:   input.VoterID,
		Success:   false,
		Reason:    reason,
		Channel:   input.Channel,
		CreatedAt: s.now(),
	}
	if err := s.attemptRepo.Record(ctx, attempt); err != nil {
		s.logger.Warn("failed to record vote attempt",
			"poll_id", input.PollID, "voter_id", input.VoterID, "error", err)
	}

	return &ports.VoteReceipt{OK: false, Message: reason}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
