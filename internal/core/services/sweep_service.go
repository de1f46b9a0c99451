package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

// SweepService closes every poll whose close time has passed and
// announces the closure. The portal does not depend on it: expired
// polls are also flipped lazily on every list read. Running the sweep
// as a batch job only tightens the window between nominal and recorded
// close.
type SweepService struct {
	pollRepo      ports.PollRepository
	voteRepo      ports.VoteRepository
	principalRepo ports.PrincipalRepository
	notifier      ports.Notifier
	logger        *slog.Logger
	now           func() time.Time
}

func NewSweepService(
	pollRepo ports.PollRepository,
	voteRepo ports.VoteRepository,
	principalRepo ports.PrincipalRepository,
	notifier ports.Notifier,
	logger *slog.Logger,
) *SweepService {
	return &SweepService{
		pollRepo:      pollRepo,
		voteRepo:      voteRepo,
		principalRepo: principalRepo,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
	}
}

// SweepDuePolls flips overdue polls and notifies each poll's creator
// with the final vote count. Announcements are best effort and run
// concurrently; a failed dispatch never fails the sweep.
func (s *SweepService) SweepDuePolls(ctx context.Context) (int64, error) {
	now := s.now()

	polls, err := s.pollRepo.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch polls: %w", err)
	}

	var due []*domain.Poll
	for _, poll := range polls {
		if poll.Active && !poll.ClosesAt.After(now) {
			due = append(due, poll)
		}
	}

	closed, err := s.pollRepo.CloseExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to close expired polls: %w", err)
	}

	var wg sync.WaitGroup
	for _, poll := range due {
		wg.Add(1)
		go func(pollID, creatorID uuid.UUID) {
			defer wg.Done()
			s.announceClosure(ctx, pollID, creatorID)
		}(poll.ID, poll.CreatedBy)
	}
	wg.Wait()

	return closed, nil
}

func (s *SweepService) announceClosure(ctx context.Context, pollID, creatorID uuid.UUID) {
	creator, err := s.principalRepo.GetByID(ctx, creatorID)
	if err != nil || creator == nil || creator.Contact == "" {
		return
	}

	tally, err := s.voteRepo.Tally(ctx, pollID)
	if err != nil {
		s.logger.Warn("failed to tally closed poll", "poll_id", pollID, "error", err)
		return
	}

	body := fmt.Sprintf("Your poll has closed with %d votes.", tally.TotalVotes)
	if err := s.notifier.Send(ctx, creator.Contact, "Poll closed", body); err != nil {
		s.logger.Warn("failed to announce poll closure", "poll_id", pollID, "error", err)
	}
}
