package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type pollService struct {
	repo ports.PollRepository
	now  func() time.Time
}

func NewPollService(repo ports.PollRepository) ports.PollService {
	return &pollService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	if input.Question == "" {
		return nil, errors.New("question is required")
	}
	if len(input.Options) < 2 {
		return nil, domain.ErrTooFewOptions
	}

	now := s.now()
	if !input.ClosesAt.After(now) {
		return nil, domain.ErrCloseInPast
	}

	pollID := uuid.New()
	poll := &domain.Poll{
		ID:        pollID,
		Question:  input.Question,
		Detail:    input.Detail,
		Active:    true,
		ClosesAt:  input.ClosesAt,
		CreatedBy: input.CreateBy,
		CreatedAt: now,
	}

	for _, optText := range input.Options {
		if optText == "" {
			continue
		}
		poll.Options = append(poll.Options, domain.PollOption{
			ID:        uuid.New(),
			PollID:    pollID,
			Text:      optText,
			CreatedAt: now,
		})
	}

	if len(poll.Options) < 2 {
		return nil, domain.ErrTooFewOptions
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	return s.repo.GetByID(ctx, pollID)
}

// ListPolls flips any overdue polls to closed before reading, so a poll
// whose close time has passed is never served as open. The flip is
// lazy: expiry is guaranteed at the next read, not in real time.
func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]*domain.Poll, error) {
	if _, err := s.repo.CloseExpired(ctx, s.now()); err != nil {
		return nil, fmt.Errorf("failed to close expired polls: %w", err)
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := 20
	offset := (page - 1) * limit

	return s.repo.List(ctx, limit, offset)
}

// UpdatePoll edits question, detail and close time. Closed polls are
// immutable regardless of who asks; privilege is necessary but not
// sufficient.
func (s *pollService) UpdatePoll(ctx context.Context, id string, input ports.UpdatePollInput) (*domain.Poll, error) {
	poll, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !poll.IsOpen(now) {
		return nil, domain.ErrPollNotEditable
	}

	if input.Question != "" {
		poll.Question = input.Question
	}
	if input.Detail != "" {
		poll.Detail = input.Detail
	}
	if !input.ClosesAt.IsZero() {
		if !input.ClosesAt.After(now) {
			return nil, domain.ErrCloseInPast
		}
		poll.ClosesAt = input.ClosesAt
	}

	if err := s.repo.Update(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (s *pollService) DeletePoll(ctx context.Context, id string) error {
	poll, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if !poll.IsOpen(s.now()) {
		return domain.ErrPollNotEditable
	}

	return s.repo.Delete(ctx, poll.ID)
}

// ClosePoll is the manual Open → Closed transition. Closing a poll that
// is already closed is rejected with ErrPollAlreadyClosed: the caller
// asked for a transition whose precondition does not hold.
func (s *pollService) ClosePoll(ctx context.Context, id string) (*domain.Poll, error) {
	poll, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !poll.IsOpen(now) {
		return nil, domain.ErrPollAlreadyClosed
	}

	if err := s.repo.Close(ctx, poll.ID, now); err != nil {
		return nil, err
	}

	poll.Active = false
	return poll, nil
}

func (s *pollService) get(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}
	return s.repo.GetByID(ctx, pollID)
}
