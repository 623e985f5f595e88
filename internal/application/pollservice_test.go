package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsemenov/wallpromo/internal/application"
	"github.com/dsemenov/wallpromo/internal/domain/model"
)

func testCredential() *model.ServiceCredential {
	return &model.ServiceCredential{UserID: 42, Email: "user@example.com", APIKey: "key"}
}

// newPollService wires a PollService with zero inter-account pacing.
func newPollService(accounts *mockAccountStore, creds *mockCredentialStore, wall *mockWallClient, promo *mockPromoGateway) *application.PollService {
	return application.NewPollService(accounts, creds, wall, promo, 0)
}

func TestRun_NoCredential(t *testing.T) {
	wall := &mockWallClient{}
	promo := &mockPromoGateway{}

	svc := newPollService(&mockAccountStore{}, &mockCredentialStore{}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.PollNoCredential, summary.Status)
	assert.Zero(t, promo.balanceCalls)
	assert.Zero(t, wall.latestCalls)
}

func TestRun_BalanceError(t *testing.T) {
	wall := &mockWallClient{}
	promo := &mockPromoGateway{balanceErr: errors.New("HTTP 502: bad gateway")}
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{{ID: 1, UserID: 42, RawInput: "id1", OwnerID: 1}}}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.PollInsufficientBalance, summary.Status)
	assert.Contains(t, summary.Reason, "HTTP 502")
	assert.Zero(t, wall.latestCalls, "no account may be inspected without balance")
}

func TestRun_ZeroBalance(t *testing.T) {
	wall := &mockWallClient{}
	promo := &mockPromoGateway{balance: 0}
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{{ID: 1, UserID: 42, RawInput: "id1", OwnerID: 1}}}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.PollInsufficientBalance, summary.Status)
	assert.NotEmpty(t, summary.Reason)
	assert.Zero(t, wall.latestCalls)
}

func TestRun_NoAccounts(t *testing.T) {
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(&mockAccountStore{}, &mockCredentialStore{cred: testCredential()}, &mockWallClient{}, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.PollNoAccounts, summary.Status)
	assert.Equal(t, float64(10), summary.Balance)
}

func TestRun_NewPostForwarded(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100, LastPostID: "7"},
	}}
	wall := &mockWallClient{
		latest: func(_ context.Context, ownerID int64, _ string) (*model.WallPost, error) {
			return &model.WallPost{URL: "https://vk.com/wall100_8", ID: "8"}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.PollCompleted, summary.Status)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, []string{"id100"}, summary.Forwarded)

	require.Len(t, accounts.updates, 1)
	assert.Equal(t, lastSeenUpdate{AccountID: 1, PostURL: "https://vk.com/wall100_8", PostID: "8"}, accounts.updates[0])
	assert.Equal(t, []string{"https://vk.com/wall100_8"}, promo.submitted)
}

func TestRun_UnchangedPostIsNoOp(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100, LastPostID: "7"},
	}}
	wall := &mockWallClient{
		latest: func(_ context.Context, _ int64, _ string) (*model.WallPost, error) {
			return &model.WallPost{URL: "https://vk.com/wall100_7", ID: "7"}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Zero(t, summary.Updated)
	assert.Empty(t, accounts.updates)
	assert.Empty(t, promo.submitted)
}

// Two consecutive cycles with no new remote post: the second cycle must be a
// pure no-op against both the ledger and the promotion service.
func TestRun_Idempotent(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100},
	}}
	wall := &mockWallClient{
		latest: func(_ context.Context, _ int64, _ string) (*model.WallPost, error) {
			return &model.WallPost{URL: "https://vk.com/wall100_8", ID: "8"}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)

	first, err := svc.Run(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Updated)

	second, err := svc.Run(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, second.Updated)
	assert.Len(t, accounts.updates, 1, "ledger must not be rewritten on the second cycle")
	assert.Len(t, promo.submitted, 1)
}

func TestRun_RepostSuppressed(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100, LastPostID: "7"},
	}}
	wall := &mockWallClient{
		latest: func(_ context.Context, _ int64, _ string) (*model.WallPost, error) {
			return &model.WallPost{URL: "https://vk.com/wall100_8", ID: "8", SuppressForward: true}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Zero(t, summary.Updated)

	// The new post is recorded as seen, but no order is placed for it.
	require.Len(t, accounts.updates, 1)
	assert.Equal(t, "8", accounts.updates[0].PostID)
	assert.Empty(t, promo.submitted)
}

// At-most-once forwarding: a failed submission must not be retried, because
// the last-seen state was persisted before the attempt.
func TestRun_FailedSubmissionNotRetried(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100, LastPostID: "7"},
	}}
	wall := &mockWallClient{
		latest: func(_ context.Context, _ int64, _ string) (*model.WallPost, error) {
			return &model.WallPost{URL: "https://vk.com/wall100_8", ID: "8"}, nil
		},
	}
	promo := &mockPromoGateway{
		balance: 10,
		submit: func(_ string) (string, error) {
			return "", errors.New("order rejected: insufficient funds")
		},
	}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)

	first, err := svc.Run(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, first.Updated)
	require.Len(t, accounts.updates, 1, "last-seen must be persisted before the submission attempt")

	// The service recovers, but the missed post must not be resubmitted.
	promo.submit = nil
	second, err := svc.Run(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, second.Updated)
	assert.Empty(t, promo.submitted)
}

func TestRun_InspectionErrorSkipsAccount(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100},
		{ID: 2, UserID: 42, RawInput: "club5", OwnerID: -5, LastPostID: "1"},
	}}
	wall := &mockWallClient{
		latest: func(_ context.Context, ownerID int64, _ string) (*model.WallPost, error) {
			if ownerID == 100 {
				return nil, errors.New("wall is private")
			}
			return &model.WallPost{URL: "https://vk.com/wall-5_2", ID: "2"}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked, "failing account counts toward neither checked nor updated")
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, []string{"club5"}, summary.Forwarded)
	assert.Equal(t, 2, wall.latestCalls, "the batch must continue past a failing account")
}

// Overlapping cycles for one user must serialize: the second cycle has to
// observe the first cycle's persisted last-seen state, or the same post is
// submitted twice.
func TestRun_SameUserCyclesSerialized(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100, LastPostID: "7"},
	}}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	wall := &mockWallClient{
		latest: func(_ context.Context, _ int64, _ string) (*model.WallPost, error) {
			// The first cycle parks inside its wall call while holding the
			// user lock; later calls return immediately.
			once.Do(func() {
				close(entered)
				<-release
			})
			return &model.WallPost{URL: "https://vk.com/wall100_8", ID: "8"}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		summary, err := svc.Run(context.Background(), 42)
		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Updated)
	}()
	<-entered

	go func() {
		defer wg.Done()
		summary, err := svc.Run(context.Background(), 42)
		assert.NoError(t, err)
		assert.Zero(t, summary.Updated)
	}()

	close(release)
	wg.Wait()

	assert.Len(t, promo.submitted, 1, "the same post must be submitted exactly once")
	assert.Len(t, accounts.updates, 1)
}

// Cycles for different users share no lock: one user's slow wall must not
// hold up another user's cycle.
func TestRun_DifferentUsersNotSerialized(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 1, RawInput: "id100", OwnerID: 100, LastPostID: "7"},
		{ID: 2, UserID: 2, RawInput: "club5", OwnerID: -5, LastPostID: "1"},
	}}

	entered := make(chan struct{})
	release := make(chan struct{})
	wall := &mockWallClient{
		latest: func(_ context.Context, ownerID int64, _ string) (*model.WallPost, error) {
			if ownerID == 100 {
				close(entered)
				<-release
				return &model.WallPost{URL: "https://vk.com/wall100_8", ID: "8"}, nil
			}
			return &model.WallPost{URL: "https://vk.com/wall-5_2", ID: "2"}, nil
		},
	}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, wall, promo)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Run(context.Background(), 1)
		assert.NoError(t, err)
	}()
	<-entered

	// User 2 completes while user 1's cycle is still parked on its wall call.
	summary, err := svc.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"club5"}, summary.Forwarded)

	close(release)
	<-done
	assert.Len(t, promo.submitted, 2)
}

func TestRun_EmptyWallNotChecked(t *testing.T) {
	accounts := &mockAccountStore{accounts: []model.TrackedAccount{
		{ID: 1, UserID: 42, RawInput: "id100", OwnerID: 100},
	}}
	promo := &mockPromoGateway{balance: 10}

	svc := newPollService(accounts, &mockCredentialStore{cred: testCredential()}, &mockWallClient{}, promo)
	summary, err := svc.Run(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.PollCompleted, summary.Status)
	assert.Zero(t, summary.Checked)
	assert.Zero(t, summary.Updated)
}
