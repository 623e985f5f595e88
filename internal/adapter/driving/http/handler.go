// Package httphandler is the HTTP driving adapter that exposes the service's
// operations to an external command dispatcher.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dsemenov/wallpromo/internal/application"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the JSON API.
type Handler struct {
	accountSvc    *application.AccountService
	credentialSvc *application.CredentialService
	pollSvc       *application.PollService
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	accountSvc *application.AccountService,
	credentialSvc *application.CredentialService,
	pollSvc *application.PollService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accountSvc:    accountSvc,
		credentialSvc: credentialSvc,
		pollSvc:       pollSvc,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with auth, logging, and recovery middleware.
func NewServeMux(h *Handler, apiToken string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/users/{userID}/accounts", h.ListAccounts)
	mux.HandleFunc("POST /api/v1/users/{userID}/accounts", h.AddAccount)
	mux.HandleFunc("DELETE /api/v1/users/{userID}/accounts/{input}", h.RemoveAccount)
	mux.HandleFunc("PUT /api/v1/users/{userID}/credential", h.SetCredential)
	mux.HandleFunc("GET /api/v1/users/{userID}/balance", h.GetBalance)
	mux.HandleFunc("POST /api/v1/users/{userID}/poll", h.RunPoll)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = authMiddleware(apiToken, wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListAccounts returns the user's tracked accounts in insertion order.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	accounts, err := h.accountSvc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list accounts", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp = append(resp, toAccountResponse(acc))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddAccount validates and persists a new tracked account.
func (h *Handler) AddAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req AddAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, err := h.accountSvc.Add(r.Context(), userID, req.Input, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, driven.ErrAccountExists):
			writeError(w, http.StatusConflict, "account already tracked")
		case errors.Is(err, driven.ErrAccountLimit):
			writeError(w, http.StatusUnprocessableEntity, "account limit reached")
		default:
			// Resolution, token, and wall reachability failures are reported
			// back with the underlying reason.
			writeError(w, http.StatusUnprocessableEntity, truncate(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(*acc))
}

// RemoveAccount deletes a tracked account by its user-entered identifier.
func (h *Handler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	input := r.PathValue("input")
	if err := h.accountSvc.Remove(r.Context(), userID, input); err != nil {
		if errors.Is(err, driven.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error("failed to remove account", "user", userID, "input", input, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetCredential validates and stores the user's promotion-service credential.
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var req SetCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "email and api_key are required")
		return
	}

	balance, err := h.credentialSvc.Set(r.Context(), userID, req.Email, req.APIKey)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, truncate(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{Email: req.Email, Balance: balance})
}

// GetBalance returns the stored credential's current balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	cred, balance, err := h.credentialSvc.BalanceInfo(r.Context(), userID)
	if err != nil {
		if errors.Is(err, driven.ErrNoCredential) {
			writeError(w, http.StatusNotFound, "no credential stored")
			return
		}
		writeError(w, http.StatusBadGateway, truncate(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{Email: cred.Email, Balance: balance})
}

// RunPoll executes one poll cycle for the user and returns its summary.
func (h *Handler) RunPoll(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	summary, err := h.pollSvc.Run(r.Context(), userID)
	if err != nil {
		h.logger.Error("poll cycle failed", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toPollResponse(*summary))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// pathUserID parses the {userID} path segment, writing a 400 on failure.
func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return userID, true
}
