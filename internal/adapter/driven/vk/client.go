// Package vk implements the WallClient port against the VK-style wall API.
package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WallClient = (*Client)(nil)

// wallFetchCount is how many recent posts one inspection fetches.
const wallFetchCount = 10

// Client implements the driven.WallClient port over the wall-content HTTP API.
type Client struct {
	httpClient *http.Client
	apiURL     string // method base, e.g. https://api.vk.com/method
	wallURL    string // public wall domain used to compose post links
	version    string // pinned API version sent with every call
}

// NewClient creates a wall API client. The transport uses an in-memory
// httpcache so repeated identical calls within one process can be served
// from cache when the remote side sends validators.
func NewClient(apiURL, wallURL, version string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   timeout,
		},
		apiURL:  apiURL,
		wallURL: wallURL,
		version: version,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URLs. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, apiURL, wallURL, version string) *Client {
	return &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		wallURL:    wallURL,
		version:    version,
	}
}

// envelope is the standard API response wrapper: exactly one of response or
// error is populated.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *apiError       `json:"error"`
}

type apiError struct {
	Code int    `json:"error_code"`
	Msg  string `json:"error_msg"`
}

// call performs one GET method call and returns the raw response payload.
// A logical API error surfaces its error_msg verbatim.
func (c *Client) call(ctx context.Context, method string, params url.Values, accessToken string) (json.RawMessage, error) {
	p := url.Values{}
	for k, vs := range params {
		p[k] = vs
	}
	p.Set("access_token", accessToken)
	p.Set("v", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/"+method+"?"+p.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}

	if env.Error != nil {
		if env.Error.Msg != "" {
			return nil, errors.New(env.Error.Msg)
		}
		return nil, fmt.Errorf("%s failed with code %d", method, env.Error.Code)
	}

	return env.Response, nil
}

// wallItem is one post as returned by wall.get. The pinned and ad markers
// arrive as 0/1 integers.
type wallItem struct {
	ID          int64 `json:"id"`
	IsPinned    int   `json:"is_pinned"`
	MarkedAsAds int   `json:"marked_as_ads"`
	Reposts     struct {
		Count int `json:"count"`
	} `json:"reposts"`
}

// LatestEligiblePost fetches the owner's most recent owner-authored posts and
// selects the newest one that is neither pinned nor an ad. When every fetched
// post is pinned or an ad it falls back to the newest post outright, so an
// account with only a pinned post still registers a latest post. Returns
// (nil, nil) when the wall is empty.
func (c *Client) LatestEligiblePost(ctx context.Context, ownerID int64, accessToken string) (*model.WallPost, error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(ownerID, 10))
	params.Set("count", strconv.Itoa(wallFetchCount))
	params.Set("filter", "owner")

	raw, err := c.call(ctx, "wall.get", params, accessToken)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []wallItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unexpected wall.get response shape: %w", err)
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}

	var chosen *wallItem
	for i := range resp.Items {
		if resp.Items[i].IsPinned == 1 || resp.Items[i].MarkedAsAds == 1 {
			continue
		}
		chosen = &resp.Items[i]
		break
	}
	if chosen == nil {
		chosen = &resp.Items[0]
	}

	if chosen.ID == 0 {
		return nil, errors.New("selected wall post has no id")
	}

	return &model.WallPost{
		URL:             fmt.Sprintf("%s/wall%d_%d", c.wallURL, ownerID, chosen.ID),
		ID:              strconv.FormatInt(chosen.ID, 10),
		SuppressForward: chosen.Reposts.Count >= 1,
	}, nil
}

// ResolveScreenName resolves an alias into a canonical signed owner id:
// individuals map to their positive id, groups and public pages to the
// negated id.
func (c *Client) ResolveScreenName(ctx context.Context, screenName, accessToken string) (int64, error) {
	params := url.Values{}
	params.Set("screen_name", screenName)

	raw, err := c.call(ctx, "utils.resolveScreenName", params, accessToken)
	if err != nil {
		return 0, err
	}

	// An unknown screen name resolves to an empty payload rather than an error.
	var resolved struct {
		Type     string `json:"type"`
		ObjectID int64  `json:"object_id"`
	}
	if err := json.Unmarshal(raw, &resolved); err != nil || resolved.Type == "" {
		return 0, fmt.Errorf("could not resolve screen name %q", screenName)
	}

	switch resolved.Type {
	case "user":
		return resolved.ObjectID, nil
	case "group", "page":
		return -resolved.ObjectID, nil
	default:
		return 0, fmt.Errorf("unknown object type %q for screen name %q", resolved.Type, screenName)
	}
}
