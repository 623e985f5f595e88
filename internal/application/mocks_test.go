package application_test

import (
	"context"

	"github.com/dsemenov/wallpromo/internal/domain/model"
)

// --- Mock port implementations shared by the application tests ---

type mockWallClient struct {
	latest       func(ctx context.Context, ownerID int64, token string) (*model.WallPost, error)
	resolve      func(ctx context.Context, screenName, token string) (int64, error)
	latestCalls  int
	resolveCalls int
}

func (m *mockWallClient) LatestEligiblePost(ctx context.Context, ownerID int64, token string) (*model.WallPost, error) {
	m.latestCalls++
	if m.latest == nil {
		return nil, nil
	}
	return m.latest(ctx, ownerID, token)
}

func (m *mockWallClient) ResolveScreenName(ctx context.Context, screenName, token string) (int64, error) {
	m.resolveCalls++
	if m.resolve == nil {
		return 0, nil
	}
	return m.resolve(ctx, screenName, token)
}

type lastSeenUpdate struct {
	AccountID int64
	PostURL   string
	PostID    string
}

type mockAccountStore struct {
	count     int
	countErr  error
	accounts  []model.TrackedAccount
	listErr   error
	inserted  []model.TrackedAccount
	insertErr error
	updates   []lastSeenUpdate
	updateErr error
	deleted   []string
	deleteErr error
}

func (m *mockAccountStore) CountForUser(_ context.Context, _ int64) (int, error) {
	return m.count, m.countErr
}

func (m *mockAccountStore) Insert(_ context.Context, acc model.TrackedAccount) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.inserted = append(m.inserted, acc)
	return int64(len(m.inserted)), nil
}

func (m *mockAccountStore) ListForUser(_ context.Context, userID int64) ([]model.TrackedAccount, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.TrackedAccount
	for _, acc := range m.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	return out, nil
}

// UpdateLastSeen mutates the stored accounts so a subsequent poll cycle
// observes the persisted last-seen state, like the real ledger would.
func (m *mockAccountStore) UpdateLastSeen(_ context.Context, accountID int64, postURL, postID string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, lastSeenUpdate{AccountID: accountID, PostURL: postURL, PostID: postID})
	for i := range m.accounts {
		if m.accounts[i].ID == accountID {
			m.accounts[i].LastPostURL = postURL
			m.accounts[i].LastPostID = postID
		}
	}
	return nil
}

func (m *mockAccountStore) Delete(_ context.Context, _ int64, rawInput string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, rawInput)
	return nil
}

type mockCredentialStore struct {
	cred   *model.ServiceCredential
	getErr error
	set    []model.ServiceCredential
	setErr error
}

func (m *mockCredentialStore) Get(_ context.Context, _ int64) (*model.ServiceCredential, error) {
	return m.cred, m.getErr
}

func (m *mockCredentialStore) Set(_ context.Context, cred model.ServiceCredential) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set = append(m.set, cred)
	return nil
}

type mockPromoGateway struct {
	balance      float64
	balanceErr   error
	balanceCalls int
	submit       func(postURL string) (string, error)
	submitted    []string
}

func (m *mockPromoGateway) QueryBalance(_ context.Context, _ model.ServiceCredential) (float64, error) {
	m.balanceCalls++
	return m.balance, m.balanceErr
}

func (m *mockPromoGateway) SubmitOrder(_ context.Context, postURL string, _ model.ServiceCredential) (string, error) {
	if m.submit != nil {
		msg, err := m.submit(postURL)
		if err != nil {
			return "", err
		}
		m.submitted = append(m.submitted, postURL)
		return msg, nil
	}
	m.submitted = append(m.submitted, postURL)
	return "order accepted", nil
}
