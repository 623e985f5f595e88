package model

// WallPost is the most recent eligible post selected from a wall inspection.
// It is transient: only URL and ID propagate into TrackedAccount state.
type WallPost struct {
	URL string
	ID  string

	// SuppressForward marks a post that is itself a repost of someone
	// else's content. It must still be recorded as seen, but no promotion
	// order is placed for it.
	SuppressForward bool
}
