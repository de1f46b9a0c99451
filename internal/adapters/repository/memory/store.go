// Package memory provides an in-process implementation of the portal's
// repository ports. A single mutex stands in for the database's
// transaction isolation: every operation, including the multi-step vote
// cast, runs atomically under the lock. Used by unit tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

type Store struct {
	mu sync.Mutex

	principals map[uuid.UUID]*domain.Principal
	polls      map[uuid.UUID]*domain.Poll
	votes      map[uuid.UUID]map[uuid.UUID]*domain.Vote // pollID → voterID → vote
	attempts   []*domain.VoteAttempt
}

func NewStore() *Store {
	return &Store{
		principals: make(map[uuid.UUID]*domain.Principal),
		polls:      make(map[uuid.UUID]*domain.Poll),
		votes:      make(map[uuid.UUID]map[uuid.UUID]*domain.Vote),
	}
}

// Port views. All views share the Store's mutex, so cross-entity
// operations such as Cast stay atomic.

func (s *Store) Principals() ports.PrincipalRepository { return &principalStore{s} }
func (s *Store) Polls() ports.PollRepository           { return &pollStore{s} }
func (s *Store) Votes() ports.VoteRepository           { return &voteStore{s} }
func (s *Store) Attempts() ports.AttemptRepository     { return &attemptStore{s} }

type principalStore struct{ s *Store }

func (r *principalStore) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.principals {
		if p.Email == email && p.DeletedAt == nil {
			return clonePrincipal(p), nil
		}
	}
	return nil, nil
}

func (r *principalStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.principals[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	return clonePrincipal(p), nil
}

func (r *principalStore) Create(ctx context.Context, principal *domain.Principal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if principal.ID == uuid.Nil {
		principal.ID = uuid.New()
	}
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = time.Now()
	}
	r.s.principals[principal.ID] = clonePrincipal(principal)
	return nil
}

func (r *principalStore) AssignRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.principals[id]
	if !ok || p.DeletedAt != nil {
		return domain.ErrPrincipalNotFound
	}
	p.Role = role
	return nil
}

func (r *principalStore) SetCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.principals[id]
	if !ok || p.DeletedAt != nil {
		return domain.ErrPrincipalNotFound
	}
	p.Code = code
	expiry := expiresAt
	p.CodeExpiresAt = &expiry
	return nil
}

type pollStore struct{ s *Store }

func (r *pollStore) Save(ctx context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r *pollStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (r *pollStore) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.allLocked(), nil
}

func (r *pollStore) List(ctx context.Context, limit, offset int) ([]*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	polls := r.allLocked()
	if offset >= len(polls) {
		return nil, nil
	}
	polls = polls[offset:]
	if limit < len(polls) {
		polls = polls[:limit]
	}
	return polls, nil
}

func (r *pollStore) allLocked() []*domain.Poll {
	polls := make([]*domain.Poll, 0, len(r.s.polls))
	for _, poll := range r.s.polls {
		polls = append(polls, clonePoll(poll))
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.Before(polls[j].CreatedAt)
	})
	return polls
}

func (r *pollStore) Update(ctx context.Context, poll *domain.Poll) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.polls[poll.ID]; !ok {
		return domain.ErrPollNotFound
	}
	r.s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (r *pollStore) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(r.s.polls, id)
	delete(r.s.votes, id)
	return nil
}

func (r *pollStore) Close(ctx context.Context, id uuid.UUID, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	if !poll.IsOpen(now) {
		return domain.ErrPollAlreadyClosed
	}
	poll.Active = false
	return nil
}

func (r *pollStore) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var closed int64
	for _, poll := range r.s.polls {
		if poll.Active && !poll.ClosesAt.After(now) {
			poll.Active = false
			closed++
		}
	}
	return closed, nil
}

type voteStore struct{ s *Store }

// Cast mirrors the postgres transaction under the store mutex: code
// check, open check, option check, supersede, code invalidation and the
// success attempt all happen atomically.
func (r *voteStore) Cast(ctx context.Context, ballot ports.CastBallot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	voter, ok := r.s.principals[ballot.VoterID]
	if !ok || voter.DeletedAt != nil {
		return domain.ErrPrincipalNotFound
	}
	if !voter.CodeValid(ballot.Code, ballot.Now) {
		return domain.ErrInvalidCode
	}

	poll, ok := r.s.polls[ballot.PollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	if !poll.IsOpen(ballot.Now) {
		return domain.ErrPollClosed
	}
	if poll.Option(ballot.OptionID) == nil {
		return domain.ErrOptionNotFound
	}

	byVoter, ok := r.s.votes[ballot.PollID]
	if !ok {
		byVoter = make(map[uuid.UUID]*domain.Vote)
		r.s.votes[ballot.PollID] = byVoter
	}
	// Map key replacement is the supersede: one live vote per voter.
	byVoter[ballot.VoterID] = &domain.Vote{
		ID:        uuid.New(),
		PollID:    ballot.PollID,
		OptionID:  ballot.OptionID,
		VoterID:   ballot.VoterID,
		Checksum:  ballot.Checksum,
		CreatedAt: ballot.Now,
	}

	voter.Code = ""
	voter.CodeExpiresAt = nil

	r.s.attempts = append(r.s.attempts, &domain.VoteAttempt{
		ID:        uuid.New(),
		PollID:    ballot.PollID,
		VoterID:   ballot.VoterID,
		Success:   true,
		Channel:   ballot.Channel,
		CreatedAt: ballot.Now,
	})

	return nil
}

func (r *voteStore) VoteFor(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	vote, ok := r.s.votes[pollID][voterID]
	if !ok {
		return nil, nil
	}
	copied := *vote
	return &copied, nil
}

func (r *voteStore) Tally(ctx context.Context, pollID uuid.UUID) (*domain.PollTally, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}

	counts := make(map[uuid.UUID]int64)
	for _, vote := range r.s.votes[pollID] {
		counts[vote.OptionID]++
	}

	tally := &domain.PollTally{PollID: pollID}
	for _, opt := range poll.Options {
		votes := counts[opt.ID]
		tally.TotalVotes += votes
		tally.Options = append(tally.Options, domain.OptionTally{
			OptionID: opt.ID,
			Text:     opt.Text,
			Votes:    votes,
		})
	}
	for i := range tally.Options {
		if tally.TotalVotes > 0 {
			tally.Options[i].Percentage = float64(tally.Options[i].Votes) / float64(tally.TotalVotes) * 100
		}
	}
	return tally, nil
}

type attemptStore struct{ s *Store }

func (r *attemptStore) Record(ctx context.Context, attempt *domain.VoteAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	copied := *attempt
	r.s.attempts = append(r.s.attempts, &copied)
	return nil
}

func (r *attemptStore) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.VoteAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var attempts []*domain.VoteAttempt
	for _, attempt := range r.s.attempts {
		if attempt.PollID == pollID {
			copied := *attempt
			attempts = append(attempts, &copied)
		}
	}
	return attempts, nil
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	copied := *p
	if p.CodeExpiresAt != nil {
		expiry := *p.CodeExpiresAt
		copied.CodeExpiresAt = &expiry
	}
	return &copied
}

func clonePoll(p *domain.Poll) *domain.Poll {
	copied := *p
	copied.Options = make([]domain.PollOption, len(p.Options))
	copy(copied.Options, p.Options)
	return &copied
}
