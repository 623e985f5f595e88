package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Get retrieves the promotion-service credential for the user.
// Returns (nil, nil) if the user has no stored credential.
func (r *CredentialRepo) Get(ctx context.Context, userID int64) (*model.ServiceCredential, error) {
	const query = `SELECT user_id, email, api_key, updated_at FROM service_credentials WHERE user_id = ?`

	var cred model.ServiceCredential
	var updatedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&cred.UserID, &cred.Email, &cred.APIKey, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential for user %d: %w", userID, err)
	}

	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for user %d: %w", userID, err)
	}

	return &cred, nil
}

// Set stores or wholesale-replaces the credential for the user.
func (r *CredentialRepo) Set(ctx context.Context, cred model.ServiceCredential) error {
	const query = `INSERT OR REPLACE INTO service_credentials (user_id, email, api_key, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`

	_, err := r.db.Writer.ExecContext(ctx, query, cred.UserID, cred.Email, cred.APIKey)
	if err != nil {
		return fmt.Errorf("set credential for user %d: %w", cred.UserID, err)
	}
	return nil
}
