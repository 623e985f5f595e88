package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// AccountService manages the set of tracked wall accounts per user.
type AccountService struct {
	accounts driven.AccountStore
	wall     driven.WallClient
	resolver *Resolver
}

// NewAccountService creates an AccountService.
func NewAccountService(accounts driven.AccountStore, wall driven.WallClient) *AccountService {
	return &AccountService{
		accounts: accounts,
		wall:     wall,
		resolver: NewResolver(wall),
	}
}

// Add validates and persists a new tracked account. tokenOrURL is either a
// bare wall API access token or the full OAuth redirect URL the user copied
// from the browser, from which the token is extracted.
//
// The per-user cap is enforced before any remote call. The wall must be
// reachable and non-empty; its current latest post seeds the last-seen state
// so the first poll only reacts to posts published after the add.
func (s *AccountService) Add(ctx context.Context, userID int64, rawInput, tokenOrURL string) (*model.TrackedAccount, error) {
	token, err := ExtractAccessToken(tokenOrURL)
	if err != nil {
		return nil, err
	}

	input := NormalizeInput(rawInput)
	if input == "" {
		return nil, errors.New("empty account identifier")
	}

	count, err := s.accounts.CountForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= model.MaxAccountsPerUser {
		return nil, fmt.Errorf("user %d: %w", userID, driven.ErrAccountLimit)
	}

	ownerID, err := s.resolver.Resolve(ctx, input, token)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", input, err)
	}

	post, err := s.wall.LatestEligiblePost(ctx, ownerID, token)
	if err != nil {
		return nil, fmt.Errorf("inspect wall %d: %w", ownerID, err)
	}
	if post == nil {
		return nil, fmt.Errorf("inspect wall %d: %w", ownerID, driven.ErrWallEmpty)
	}

	acc := model.TrackedAccount{
		UserID:      userID,
		RawInput:    input,
		OwnerID:     ownerID,
		AccessToken: token,
		DisplayName: input,
		LastPostURL: post.URL,
		LastPostID:  post.ID,
		CreatedAt:   time.Now().UTC(),
	}

	id, err := s.accounts.Insert(ctx, acc)
	if err != nil {
		return nil, err
	}
	acc.ID = id

	slog.Info("account added", "user", userID, "input", input, "owner_id", ownerID, "last_post", post.ID)
	return &acc, nil
}

// Remove deletes the tracked account identified by the user-entered input.
func (s *AccountService) Remove(ctx context.Context, userID int64, rawInput string) error {
	return s.accounts.Delete(ctx, userID, NormalizeInput(rawInput))
}

// List returns the user's tracked accounts in insertion order.
func (s *AccountService) List(ctx context.Context, userID int64) ([]model.TrackedAccount, error) {
	return s.accounts.ListForUser(ctx, userID)
}

// ExtractAccessToken pulls the access token out of a full OAuth redirect URL
// ("...#access_token=...&expires_in=..."), or returns the input unchanged
// when it is already a bare token.
func ExtractAccessToken(tokenOrURL string) (string, error) {
	s := strings.TrimSpace(tokenOrURL)
	if s == "" {
		return "", errors.New("empty access token")
	}

	const marker = "access_token="
	if !strings.Contains(s, marker) {
		if strings.Contains(s, "://") {
			return "", errors.New("no access_token found in URL")
		}
		return s, nil
	}

	token := s[strings.Index(s, marker)+len(marker):]
	if i := strings.IndexByte(token, '&'); i >= 0 {
		token = token[:i]
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("no access token found in URL")
	}

	return token, nil
}
