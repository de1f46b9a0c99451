package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecinet/portal/internal/adapters/repository/memory"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

func newTestPollService(store *memory.Store, now func() time.Time) *pollService {
	return &pollService{repo: store.Polls(), now: now}
}

func TestCreatePollValidation(t *testing.T) {
	store := memory.NewStore()
	svc := newTestPollService(store, time.Now)
	ctx := context.Background()

	base := ports.CreatePollInput{
		Question: "Approve budget?",
		Options:  []string{"Yes", "No"},
		ClosesAt: time.Now().Add(time.Hour),
		CreateBy: uuid.New(),
	}

	t.Run("missing question", func(t *testing.T) {
		input := base
		input.Question = ""
		_, err := svc.Create(ctx, input)
		assert.Error(t, err)
	})

	t.Run("too few options", func(t *testing.T) {
		input := base
		input.Options = []string{"Yes"}
		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrTooFewOptions)
	})

	t.Run("blank options do not count", func(t *testing.T) {
		input := base
		input.Options = []string{"Yes", ""}
		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrTooFewOptions)
	})

	t.Run("close time in the past", func(t *testing.T) {
		input := base
		input.ClosesAt = time.Now().Add(-time.Minute)
		_, err := svc.Create(ctx, input)
		assert.ErrorIs(t, err, domain.ErrCloseInPast)
	})

	t.Run("valid input", func(t *testing.T) {
		poll, err := svc.Create(ctx, base)
		require.NoError(t, err)
		assert.True(t, poll.Active)
		assert.Len(t, poll.Options, 2)
		for _, opt := range poll.Options {
			assert.Equal(t, poll.ID, opt.PollID)
		}
	})
}

func TestListPollsClosesExpired(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	start := time.Now()
	svc := newTestPollService(store, func() time.Time { return start })

	poll, err := svc.Create(ctx, ports.CreatePollInput{
		Question: "Repaint the lobby?",
		Options:  []string{"Yes", "No"},
		ClosesAt: start.Add(time.Hour),
		CreateBy: uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, poll.IsOpen(start))

	// Move the clock past the close time; the next read must observe
	// the poll as closed without any explicit close call.
	later := start.Add(2 * time.Hour)
	svc.now = func() time.Time { return later }

	polls, err := svc.ListPolls(ctx, ports.ListPollsInput{Page: 1})
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.False(t, polls[0].Active)
	assert.False(t, polls[0].IsOpen(later))
}

func TestClosePoll(t *testing.T) {
	store := memory.NewStore()
	svc := newTestPollService(store, time.Now)
	ctx := context.Background()

	poll, err := svc.Create(ctx, ports.CreatePollInput{
		Question: "Hire a gardener?",
		Options:  []string{"Yes", "No"},
		ClosesAt: time.Now().Add(time.Hour),
		CreateBy: uuid.New(),
	})
	require.NoError(t, err)

	closed, err := svc.ClosePoll(ctx, poll.ID.String())
	require.NoError(t, err)
	assert.False(t, closed.Active)

	// Closing an already closed poll is rejected, not silently
	// accepted.
	_, err = svc.ClosePoll(ctx, poll.ID.String())
	assert.ErrorIs(t, err, domain.ErrPollAlreadyClosed)
}

func TestClosedPollIsImmutable(t *testing.T) {
	store := memory.NewStore()
	svc := newTestPollService(store, time.Now)
	ctx := context.Background()

	poll, err := svc.Create(ctx, ports.CreatePollInput{
		Question: "Install solar panels?",
		Options:  []string{"Yes", "No"},
		ClosesAt: time.Now().Add(time.Hour),
		CreateBy: uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.ClosePoll(ctx, poll.ID.String())
	require.NoError(t, err)

	_, err = svc.UpdatePoll(ctx, poll.ID.String(), ports.UpdatePollInput{Question: "Changed?"})
	assert.ErrorIs(t, err, domain.ErrPollNotEditable)

	err = svc.DeletePoll(ctx, poll.ID.String())
	assert.ErrorIs(t, err, domain.ErrPollNotEditable)
}

func TestGetPollInvalidID(t *testing.T) {
	store := memory.NewStore()
	svc := newTestPollService(store, time.Now)

	_, err := svc.GetPoll(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidPollID)
}
