package driven

import (
	"context"
	"errors"

	"github.com/dsemenov/wallpromo/internal/domain/model"
)

// Sentinel errors returned by AccountStore implementations.
var (
	// ErrAccountExists indicates the (user, raw input) pair is already tracked.
	ErrAccountExists = errors.New("account already tracked")

	// ErrAccountNotFound indicates no tracked account matched.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountLimit indicates the user already tracks the maximum number
	// of accounts.
	ErrAccountLimit = errors.New("account limit reached")
)

// AccountStore defines the driven port for tracked-account persistence.
// Insert returns ErrAccountExists on a uniqueness violation.
// Delete returns ErrAccountNotFound if no row matched.
// ListForUser returns accounts in insertion order.
type AccountStore interface {
	CountForUser(ctx context.Context, userID int64) (int, error)
	Insert(ctx context.Context, acc model.TrackedAccount) (int64, error)
	ListForUser(ctx context.Context, userID int64) ([]model.TrackedAccount, error)
	UpdateLastSeen(ctx context.Context, accountID int64, postURL, postID string) error
	Delete(ctx context.Context, userID int64, rawInput string) error
}
