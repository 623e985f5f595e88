package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// CredentialService manages promotion-service credentials.
type CredentialService struct {
	creds driven.CredentialStore
	promo driven.PromoGateway
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(creds driven.CredentialStore, promo driven.PromoGateway) *CredentialService {
	return &CredentialService{creds: creds, promo: promo}
}

// Set validates the credential against the promotion service with a balance
// query and persists it only when the query succeeds. Returns the verified
// balance.
func (s *CredentialService) Set(ctx context.Context, userID int64, email, apiKey string) (float64, error) {
	cred := model.ServiceCredential{UserID: userID, Email: email, APIKey: apiKey}

	balance, err := s.promo.QueryBalance(ctx, cred)
	if err != nil {
		return 0, fmt.Errorf("credential check failed: %w", err)
	}

	if err := s.creds.Set(ctx, cred); err != nil {
		return 0, err
	}

	slog.Info("credential stored", "user", userID, "email", email, "balance", balance)
	return balance, nil
}

// BalanceInfo returns the stored credential and its current balance.
// Returns driven.ErrNoCredential when the user has not set one.
func (s *CredentialService) BalanceInfo(ctx context.Context, userID int64) (*model.ServiceCredential, float64, error) {
	cred, err := s.creds.Get(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if cred == nil {
		return nil, 0, driven.ErrNoCredential
	}

	balance, err := s.promo.QueryBalance(ctx, *cred)
	if err != nil {
		return nil, 0, err
	}

	return cred, balance, nil
}
