package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecinet/portal/internal/adapters/repository/memory"
	"github.com/vecinet/portal/internal/core/domain"
	"github.com/vecinet/portal/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	Contact string
	Subject string
	Body    string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (n *captureNotifier) Send(ctx context.Context, contact, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, sentMessage{contact, subject, body})
	return nil
}

type failingAttemptRepo struct{}

func (failingAttemptRepo) Record(ctx context.Context, attempt *domain.VoteAttempt) error {
	return errors.New("attempt table unavailable")
}

func (failingAttemptRepo) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]*domain.VoteAttempt, error) {
	return nil, nil
}

type voteFixture struct {
	store    *memory.Store
	svc      *voteService
	notifier *captureNotifier
	voter    *domain.Principal
	poll     *domain.Poll
}

func setupVote(t *testing.T) *voteFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	notifier := &captureNotifier{}

	voter := &domain.Principal{
		Email:   "resident@vecinet.test",
		Name:    "Ana",
		Role:    domain.RoleResident,
		Contact: "resident@vecinet.test",
	}
	require.NoError(t, store.Principals().Create(ctx, voter))

	pollSvc := newTestPollService(store, time.Now)
	poll, err := pollSvc.Create(ctx, ports.CreatePollInput{
		Question: "Approve budget?",
		Options:  []string{"Yes", "No"},
		ClosesAt: time.Now().Add(time.Hour),
		CreateBy: voter.ID,
	})
	require.NoError(t, err)

	svc := &voteService{
		principalRepo: store.Principals(),
		voteRepo:      store.Votes(),
		attemptRepo:   store.Attempts(),
		notifier:      notifier,
		logger:        testLogger(),
		voteSecret:    []byte("test-vote-secret"),
		now:           time.Now,
	}

	return &voteFixture{store: store, svc: svc, notifier: notifier, voter: voter, poll: poll}
}

// storedCode reads the code currently persisted on the voter profile.
func (f *voteFixture) storedCode(t *testing.T) string {
	t.Helper()
	p, err := f.store.Principals().GetByID(context.Background(), f.voter.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Code
}

func (f *voteFixture) requestCode(t *testing.T) string {
	t.Helper()
	issue, err := f.svc.RequestCode(context.Background(), f.voter.ID)
	require.NoError(t, err)
	require.True(t, issue.Delivered)
	return f.storedCode(t)
}

func TestRequestCode(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	issue, err := fix.svc.RequestCode(ctx, fix.voter.ID)
	require.NoError(t, err)
	assert.True(t, issue.Delivered)
	assert.WithinDuration(t, time.Now().Add(codeTTL), issue.ExpiresAt, 5*time.Second)

	code := fix.storedCode(t)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	require.Len(t, fix.notifier.sent, 1)
	assert.Contains(t, fix.notifier.sent[0].Body, code)

	// A second request overwrites the first code.
	issue, err = fix.svc.RequestCode(ctx, fix.voter.ID)
	require.NoError(t, err)
	assert.True(t, issue.Delivered)
	second := fix.storedCode(t)
	assert.NotEmpty(t, second)
}

func TestRequestCodeNoContact(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	noContact := &domain.Principal{Email: "silent@vecinet.test", Role: domain.RoleResident}
	require.NoError(t, fix.store.Principals().Create(ctx, noContact))

	_, err := fix.svc.RequestCode(ctx, noContact.ID)
	assert.ErrorIs(t, err, domain.ErrNoContactAddress)
}

func TestRequestCodeDispatchFailure(t *testing.T) {
	fix := setupVote(t)
	fix.notifier.fail = true

	issue, err := fix.svc.RequestCode(context.Background(), fix.voter.ID)
	require.NoError(t, err)
	assert.False(t, issue.Delivered)
	assert.NotEmpty(t, issue.Message)

	// The code was generated and persisted despite the failed
	// dispatch; it stays valid until it expires.
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), fix.storedCode(t))
}

func TestCastMissingOption(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:  fix.poll.ID,
		VoterID: fix.voter.ID,
		Code:    "123456",
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonMissingOption, receipt.Message)

	attempts, err := fix.svc.Attempts(ctx, fix.poll.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, domain.ReasonMissingOption, attempts[0].Reason)
}

func TestCastMissingCode(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	optionID := fix.poll.Options[0].ID
	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &optionID,
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonMissingCode, receipt.Message)
}

func TestCastExpiredCode(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	require.NoError(t, fix.store.Principals().SetCode(
		ctx, fix.voter.ID, "654321", time.Now().Add(-time.Minute)))

	optionID := fix.poll.Options[0].ID
	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &optionID,
		Code:     "654321",
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonInvalidCode, receipt.Message)

	// No vote was created.
	vote, err := fix.svc.MyVote(ctx, fix.poll.ID, fix.voter.ID)
	require.NoError(t, err)
	assert.Nil(t, vote)

	attempts, err := fix.svc.Attempts(ctx, fix.poll.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, domain.ReasonInvalidCode, attempts[0].Reason)
}

func TestCastWrongCode(t *testing.T) {
	fix := setupVote(t)
	code := fix.requestCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	optionID := fix.poll.Options[0].ID
	receipt, err := fix.svc.Cast(context.Background(), ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &optionID,
		Code:     wrong,
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonInvalidCode, receipt.Message)
}

func TestCastClosedPoll(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	code := fix.requestCode(t)

	pollSvc := newTestPollService(fix.store, time.Now)
	_, err := pollSvc.ClosePoll(ctx, fix.poll.ID.String())
	require.NoError(t, err)

	// A valid code does not matter: the poll state check comes after
	// the code check and rejects the cast.
	optionID := fix.poll.Options[0].ID
	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &optionID,
		Code:     code,
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonPollClosed, receipt.Message)
}

func TestCastForeignOption(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	code := fix.requestCode(t)

	foreign := uuid.New()
	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &foreign,
		Code:     code,
	})
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)
	assert.Nil(t, receipt)

	// Structurally invalid requests are not vote attempts.
	attempts, err := fix.svc.Attempts(ctx, fix.poll.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestCastSuccessAndSupersede(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	yes := fix.poll.Options[0].ID
	no := fix.poll.Options[1].ID

	code := fix.requestCode(t)
	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &yes,
		Code:     code,
	})
	require.NoError(t, err)
	require.True(t, receipt.OK)

	// Re-vote with a fresh code: the prior vote is replaced, never
	// accumulated.
	code = fix.requestCode(t)
	receipt, err = fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &no,
		Code:     code,
	})
	require.NoError(t, err)
	require.True(t, receipt.OK)

	vote, err := fix.svc.MyVote(ctx, fix.poll.ID, fix.voter.ID)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, no, vote.OptionID)
	assert.True(t, domain.VerifyVoteChecksum([]byte("test-vote-secret"), vote))

	tally, err := fix.svc.Tally(ctx, fix.poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.TotalVotes)
}

func TestCodeSingleUse(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	yes := fix.poll.Options[0].ID
	code := fix.requestCode(t)

	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &yes,
		Code:     code,
	})
	require.NoError(t, err)
	require.True(t, receipt.OK)

	// The code died with the vote that used it.
	receipt, err = fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &yes,
		Code:     code,
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonInvalidCode, receipt.Message)
}

func TestTallyZeroVotes(t *testing.T) {
	fix := setupVote(t)

	tally, err := fix.svc.Tally(context.Background(), fix.poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tally.TotalVotes)
	require.Len(t, tally.Options, 2)
	for _, opt := range tally.Options {
		assert.Equal(t, int64(0), opt.Votes)
		assert.Equal(t, 0.0, opt.Percentage)
	}
}

func TestAttemptLogFailureIsSwallowed(t *testing.T) {
	fix := setupVote(t)
	fix.svc.attemptRepo = failingAttemptRepo{}

	receipt, err := fix.svc.Cast(context.Background(), ports.CastVoteInput{
		PollID:  fix.poll.ID,
		VoterID: fix.voter.ID,
	})
	require.NoError(t, err)
	assert.False(t, receipt.OK)
	assert.Equal(t, domain.ReasonMissingOption, receipt.Message)
}

func TestBudgetPollScenario(t *testing.T) {
	fix := setupVote(t)
	ctx := context.Background()

	code := fix.requestCode(t)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	yes := fix.poll.Options[0].ID
	receipt, err := fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &yes,
		Code:     code,
	})
	require.NoError(t, err)
	assert.True(t, receipt.OK)

	// Re-using the observed code fails.
	receipt, err = fix.svc.Cast(ctx, ports.CastVoteInput{
		PollID:   fix.poll.ID,
		VoterID:  fix.voter.ID,
		OptionID: &yes,
		Code:     code,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonInvalidCode, receipt.Message)

	tally, err := fix.svc.Tally(ctx, fix.poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tally.TotalVotes)
	require.Len(t, tally.Options, 2)
	assert.Equal(t, "Yes", tally.Options[0].Text)
	assert.Equal(t, int64(1), tally.Options[0].Votes)
	assert.Equal(t, 100.0, tally.Options[0].Percentage)
	assert.Equal(t, "No", tally.Options[1].Text)
	assert.Equal(t, int64(0), tally.Options[1].Votes)
	assert.Equal(t, 0.0, tally.Options[1].Percentage)

	attempts, err := fix.svc.Attempts(ctx, fix.poll.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, attempts[0].Success)
	assert.False(t, attempts[1].Success)
}
