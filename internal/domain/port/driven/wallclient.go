package driven

import (
	"context"
	"errors"

	"github.com/dsemenov/wallpromo/internal/domain/model"
)

// ErrWallEmpty indicates a wall with no posts at all. Only interactive flows
// that require a reachable, non-empty wall report it; a poll cycle treats an
// empty wall as "nothing to do".
var ErrWallEmpty = errors.New("wall has no posts")

// WallClient defines the driven port for the remote wall-content API.
//
// LatestEligiblePost fetches the owner's most recent wall posts and selects
// the newest one that is neither pinned nor marked as an ad, falling back to
// the newest post outright when every fetched post carries one of those
// flags. It returns (nil, nil) when the wall has no posts at all.
//
// ResolveScreenName resolves an alias to a canonical signed owner id:
// positive for an individual, negative for a group or public page.
type WallClient interface {
	LatestEligiblePost(ctx context.Context, ownerID int64, accessToken string) (*model.WallPost, error)
	ResolveScreenName(ctx context.Context, screenName, accessToken string) (int64, error)
}
