package model

import "time"

// MaxAccountsPerUser is the cap on tracked wall accounts per owning user.
const MaxAccountsPerUser = 10

// TrackedAccount represents a wall account tracked for one user. OwnerID is
// the canonical signed wall address: positive for an individual page,
// negative for a group or public page. It is derived once at creation and
// never changes.
type TrackedAccount struct {
	ID          int64
	UserID      int64
	RawInput    string // identifier as the user typed it (id123, club123, shortname)
	OwnerID     int64
	AccessToken string // per-account wall API token
	DisplayName string
	LastPostURL string // empty until the first successful inspection
	LastPostID  string
	CreatedAt   time.Time
}
