package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// PollService runs one poll cycle per invocation: it walks a user's tracked
// accounts, detects new wall posts against the ledger's last-seen state, and
// forwards qualifying posts to the promotion service.
//
// Cycles for the same user are serialized internally; cycles for different
// users may run concurrently and share nothing but the store connections.
type PollService struct {
	accounts driven.AccountStore
	creds    driven.CredentialStore
	wall     driven.WallClient
	promo    driven.PromoGateway
	limiter  *rate.Limiter

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

// NewPollService creates a PollService. interval is the minimum spacing
// between consecutive wall inspections within one cycle, required by the
// wall API's rate limit; pass 0 to disable pacing (tests).
func NewPollService(
	accounts driven.AccountStore,
	creds driven.CredentialStore,
	wall driven.WallClient,
	promo driven.PromoGateway,
	interval time.Duration,
) *PollService {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &PollService{
		accounts:  accounts,
		creds:     creds,
		wall:      wall,
		promo:     promo,
		limiter:   rate.NewLimiter(limit, 1),
		userLocks: make(map[int64]*sync.Mutex),
	}
}

// Run executes one poll cycle for the user and returns its summary.
// A non-nil error is reserved for ledger failures and context cancellation;
// every remote-side condition maps to a terminal status or is skipped
// per-account.
func (s *PollService) Run(ctx context.Context, userID int64) (*model.PollSummary, error) {
	// Overlapping cycles for one user would double-submit the same post.
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	cred, err := s.creds.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return &model.PollSummary{Status: model.PollNoCredential}, nil
	}

	balance, err := s.promo.QueryBalance(ctx, *cred)
	if err != nil {
		return &model.PollSummary{Status: model.PollInsufficientBalance, Reason: err.Error()}, nil
	}
	if balance <= 0 {
		return &model.PollSummary{
			Status:  model.PollInsufficientBalance,
			Reason:  "balance is exhausted",
			Balance: balance,
		}, nil
	}

	accounts, err := s.accounts.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return &model.PollSummary{Status: model.PollNoAccounts, Balance: balance}, nil
	}

	summary := &model.PollSummary{Status: model.PollCompleted, Balance: balance}

	for _, acc := range accounts {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		if err := s.pollAccount(ctx, acc, *cred, summary); err != nil {
			// A single account's failure never aborts the batch.
			slog.Warn("account poll failed",
				"user", userID,
				"account", acc.RawInput,
				"error", err,
			)
		}
	}

	slog.Info("poll cycle complete",
		"user", userID,
		"accounts", len(accounts),
		"checked", summary.Checked,
		"updated", summary.Updated,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return summary, nil
}

// pollAccount inspects one account's wall and forwards a newly seen post.
func (s *PollService) pollAccount(ctx context.Context, acc model.TrackedAccount, cred model.ServiceCredential, summary *model.PollSummary) error {
	post, err := s.wall.LatestEligiblePost(ctx, acc.OwnerID, acc.AccessToken)
	if err != nil {
		return err
	}
	if post == nil {
		// Empty wall: nothing to compare, nothing checked.
		return nil
	}

	summary.Checked++

	if post.ID == acc.LastPostID {
		return nil
	}

	// Persist the new last-seen state before any forwarding attempt. A crash
	// or a failed submission after this point must not cause the same post
	// to be submitted again on the next cycle.
	if err := s.accounts.UpdateLastSeen(ctx, acc.ID, post.URL, post.ID); err != nil {
		return err
	}

	if post.SuppressForward {
		slog.Info("repost suppressed",
			"user", acc.UserID,
			"account", acc.RawInput,
			"post", post.ID,
		)
		return nil
	}

	msg, err := s.promo.SubmitOrder(ctx, post.URL, cred)
	if err != nil {
		// At-most-once forwarding: the last-seen update stands and the post
		// is never retried. A missed promotion beats a duplicate charge.
		slog.Warn("order rejected",
			"user", acc.UserID,
			"account", acc.RawInput,
			"post", post.ID,
			"error", err,
		)
		return nil
	}

	summary.Updated++
	summary.Forwarded = append(summary.Forwarded, acc.RawInput)
	slog.Info("order accepted",
		"user", acc.UserID,
		"account", acc.RawInput,
		"post", post.ID,
		"message", msg,
	)

	return nil
}

// userLock returns the mutex serializing cycles for one user, creating it on
// first use. Locks are never removed; the map is bounded by the user base.
func (s *PollService) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}
