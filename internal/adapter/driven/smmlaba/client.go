// Package smmlaba implements the PromoGateway port against the SMMLaba-style
// promotion API: a single form-encoded POST endpoint discriminated by an
// "action" field.
package smmlaba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PromoGateway = (*Client)(nil)

// maxExcerptLen bounds how much of a raw response body ends up in an error
// message. The endpoint is known to answer with full HTML error pages.
const maxExcerptLen = 250

// Client implements the driven.PromoGateway port.
type Client struct {
	httpClient *http.Client
	endpoint   string
	service    string // fixed service code sent with every order
	quantity   int    // fixed order quantity
}

// NewClient creates a promotion-service gateway. service and quantity are
// deployment configuration, not per-call parameters.
func NewClient(endpoint, service string, quantity int, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		service:    service,
		quantity:   quantity,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint, service string, quantity int) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		service:    service,
		quantity:   quantity,
	}
}

// apiResponse is the documented response protocol: result is "success" or
// "error"; message carries the payload on success, error the reason otherwise.
// Both message and error show up as strings or objects depending on action.
type apiResponse struct {
	Result  string          `json:"result"`
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// post sends one form-encoded request and enforces the response protocol:
// HTTP 200, a JSON body, and result == "success". Anything else is an error
// carrying the remote error text or a bounded raw-body excerpt.
func (c *Client) post(ctx context.Context, form url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("promotion service request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read promotion service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("promotion service returned HTTP %d: %s", resp.StatusCode, excerpt(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("promotion service response is not JSON: %s", excerpt(body))
	}

	if parsed.Result != "success" {
		if msg := rawToString(parsed.Error); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, errors.New("unknown promotion service error")
	}

	return &parsed, nil
}

// QueryBalance returns the account balance for the credential. A balance
// field that cannot be coerced to a number is an error, never a silent zero.
func (c *Client) QueryBalance(ctx context.Context, cred model.ServiceCredential) (float64, error) {
	form := url.Values{}
	form.Set("username", cred.Email)
	form.Set("apikey", cred.APIKey)
	form.Set("action", "balance")

	resp, err := c.post(ctx, form)
	if err != nil {
		return 0, err
	}

	var msg struct {
		Balance any `json:"balance"`
	}
	if err := json.Unmarshal(resp.Message, &msg); err != nil {
		return 0, fmt.Errorf("could not read balance from response: %s", excerpt(resp.Message))
	}

	balance, err := coerceFloat(msg.Balance)
	if err != nil {
		return 0, fmt.Errorf("could not read balance from response: %s", excerpt(resp.Message))
	}

	return balance, nil
}

// SubmitOrder places a promotion order for the post URL and returns the
// service's acceptance message. The remote side is not idempotent; callers
// must not resubmit the same URL.
func (c *Client) SubmitOrder(ctx context.Context, postURL string, cred model.ServiceCredential) (string, error) {
	form := url.Values{}
	form.Set("username", cred.Email)
	form.Set("apikey", cred.APIKey)
	form.Set("action", "add")
	form.Set("service", c.service)
	form.Set("url", postURL)
	form.Set("count", strconv.Itoa(c.quantity))

	resp, err := c.post(ctx, form)
	if err != nil {
		return "", err
	}

	if msg := rawToString(resp.Message); msg != "" {
		return msg, nil
	}
	return "order accepted", nil
}

// coerceFloat converts the loosely typed balance value: the service returns
// it as a number or a numeric string depending on the account.
func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected balance type %T", v)
	}
}

// rawToString renders a message/error payload that may be a JSON string or
// an arbitrary object.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return excerpt(raw)
}

// excerpt bounds a raw body for inclusion in an error message, cutting on a
// rune boundary so Cyrillic error pages stay valid UTF-8.
func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxExcerptLen {
		return s
	}
	cut := maxExcerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
