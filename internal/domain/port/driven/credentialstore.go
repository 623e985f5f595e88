package driven

import (
	"context"
	"errors"

	"github.com/dsemenov/wallpromo/internal/domain/model"
)

// ErrNoCredential indicates the user has not stored a promotion-service
// credential yet.
var ErrNoCredential = errors.New("no promotion service credential stored")

// CredentialStore defines the driven port for promotion-service credentials.
// Get returns (nil, nil) when the user has no stored credential.
// Set has upsert semantics: insert if absent, full overwrite if present.
type CredentialStore interface {
	Get(ctx context.Context, userID int64) (*model.ServiceCredential, error)
	Set(ctx context.Context, cred model.ServiceCredential) error
}
