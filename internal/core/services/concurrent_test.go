package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecinet/portal/internal/core/ports"
)

// Fifty parallel casts by the same voter on the same poll must leave
// exactly one live vote, never zero and never more than one, no matter
// how the attempts interleave.
func TestConcurrentCastSamePrincipal(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	const attempts = 50
	var successes atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			// Each goroutine provisions its own code before casting.
			// Codes overwrite each other, so many casts will lose the
			// race and fail with an invalid code; that is fine. What
			// can never happen is two live votes.
			code := fmt.Sprintf("%06d", n)
			if err := fix.store.Principals().SetCode(ctx, fix.voter.ID, code, fix.svc.now().Add(codeTTL)); err != nil {
				return
			}

			optionID := fix.poll.Options[n%2].ID
			receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
				PollID:   fix.poll.ID,
				VoterID:  fix.voter.ID,
				OptionID: &optionID,
				Code:     code,
			})
			if err == nil && receipt.OK {
				successes.Add(1)
			}
		}(i)
	}

	wg.Wait()

	require.GreaterOrEqual(t, successes.Load(), int32(1))

	vote, err := fix.svc.MyVote(ctx, fix.poll.ID, fix.voter.ID)
	require.NoError(t, err)
	require.NotNil(t, vote, "expected exactly one surviving vote")

	tally, err := fix.svc.Tally(ctx, fix.poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.TotalVotes)
}

// A shared single code: exactly one of the racing casts can consume it.
func TestConcurrentCastSingleCode(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	code := fix.requestCode(t)

	const attempts = 50
	var successes atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			optionID := fix.poll.Options[n%2].ID
			receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
				PollID:   fix.poll.ID,
				VoterID:  fix.voter.ID,
				OptionID: &optionID,
				Code:     code,
			})
			if err == nil && receipt.OK {
				successes.Add(1)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "single-use code consumed more than once")

	tally, err := fix.svc.Tally(ctx, fix.poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.TotalVotes)
}
