package httphandler

import (
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dsemenov/wallpromo/internal/domain/model"
)

// maxErrorLen bounds user-visible error messages; upstream failures can carry
// whole HTML error pages.
const maxErrorLen = 250

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// truncate bounds a message for inclusion in an error response, cutting on a
// rune boundary so upstream Cyrillic error text stays valid UTF-8.
func truncate(s string) string {
	if len(s) <= maxErrorLen {
		return s
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AddAccountRequest is the JSON body for the add account endpoint. Token is
// either a bare wall API access token or the full OAuth redirect URL.
type AddAccountRequest struct {
	Input string `json:"input"`
	Token string `json:"token"`
}

// SetCredentialRequest is the JSON body for the set credential endpoint.
type SetCredentialRequest struct {
	Email  string `json:"email"`
	APIKey string `json:"api_key"`
}

// AccountResponse is the JSON representation of a tracked account.
// The access token is deliberately never serialized.
type AccountResponse struct {
	Input       string `json:"input"`
	OwnerID     int64  `json:"owner_id"`
	DisplayName string `json:"display_name"`
	LastPostURL string `json:"last_post_url,omitempty"`
	LastPostID  string `json:"last_post_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// BalanceResponse is the JSON representation of a balance query.
type BalanceResponse struct {
	Email   string  `json:"email"`
	Balance float64 `json:"balance"`
}

// PollResponse is the JSON representation of a poll cycle summary.
type PollResponse struct {
	Status    string   `json:"status"`
	Reason    string   `json:"reason,omitempty"`
	Balance   float64  `json:"balance"`
	Checked   int      `json:"checked"`
	Updated   int      `json:"updated"`
	Forwarded []string `json:"forwarded"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toAccountResponse converts a domain TrackedAccount to its JSON representation.
func toAccountResponse(acc model.TrackedAccount) AccountResponse {
	return AccountResponse{
		Input:       acc.RawInput,
		OwnerID:     acc.OwnerID,
		DisplayName: acc.DisplayName,
		LastPostURL: acc.LastPostURL,
		LastPostID:  acc.LastPostID,
		CreatedAt:   acc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toPollResponse converts a domain PollSummary to its JSON representation.
func toPollResponse(s model.PollSummary) PollResponse {
	forwarded := s.Forwarded
	if forwarded == nil {
		forwarded = []string{}
	}

	return PollResponse{
		Status:    string(s.Status),
		Reason:    s.Reason,
		Balance:   s.Balance,
		Checked:   s.Checked,
		Updated:   s.Updated,
		Forwarded: forwarded,
	}
}
