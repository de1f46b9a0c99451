package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vecinet/portal/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Poll, error)
	Update(ctx context.Context, poll *domain.Poll) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Close flips the poll to inactive. Returns
	// domain.ErrPollAlreadyClosed when it was not open at the time of
	// the write.
	Close(ctx context.Context, id uuid.UUID, now time.Time) error
	// CloseExpired flips every active poll whose close time has passed
	// and reports how many rows changed.
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

type CreatePollInput struct {
	Question string
	Detail   string
	Options  []string
	ClosesAt time.Time
	CreateBy uuid.UUID
}

type UpdatePollInput struct {
	Question string
	Detail   string
	ClosesAt time.Time
}

type ListPollsInput struct {
	Page int
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]*domain.Poll, error)
	UpdatePoll(ctx context.Context, id string, input UpdatePollInput) (*domain.Poll, error)
	DeletePoll(ctx context.Context, id string) error
	ClosePoll(ctx context.Context, id string) (*domain.Poll, error)
}
