// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// Resolver turns a user-supplied account identifier into a canonical signed
// owner id. Numeric-prefixed forms (id123, club123, public123) resolve
// locally; anything else is treated as a screen-name alias and resolved
// through the wall API.
type Resolver struct {
	wall driven.WallClient
}

// NewResolver creates a Resolver backed by the given wall client.
func NewResolver(wall driven.WallClient) *Resolver {
	return &Resolver{wall: wall}
}

// Resolve normalizes rawInput and returns the canonical owner id: positive
// for an individual, negative for a group or public page.
func (r *Resolver) Resolve(ctx context.Context, rawInput, accessToken string) (int64, error) {
	input := NormalizeInput(rawInput)
	if input == "" {
		return 0, errors.New("empty account identifier")
	}

	if id, ok := numericSuffix(input, "id"); ok {
		return id, nil
	}
	if id, ok := numericSuffix(input, "club"); ok {
		return -id, nil
	}
	if id, ok := numericSuffix(input, "public"); ok {
		return -id, nil
	}

	return r.wall.ResolveScreenName(ctx, input, accessToken)
}

// NormalizeInput lowercases and trims a user-entered account identifier.
// Every layer that keys on raw input uses the normalized form.
func NormalizeInput(rawInput string) string {
	return strings.ToLower(strings.TrimSpace(rawInput))
}

// numericSuffix matches "<prefix><digits>" and returns the digits as a
// positive integer. Only bare digits qualify; a sign character makes the
// input an alias ("id+5" is a screen name, not owner 5).
func numericSuffix(input, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(input, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
