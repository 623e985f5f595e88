package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dsemenov/wallpromo/internal/domain/model"
	"github.com/dsemenov/wallpromo/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// AccountRepo is the SQLite implementation of the AccountStore port interface.
type AccountRepo struct {
	db *DB
}

// NewAccountRepo creates a new AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// CountForUser returns the number of accounts tracked by the user.
func (r *AccountRepo) CountForUser(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM tracked_accounts WHERE user_id = ?`

	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts for user %d: %w", userID, err)
	}

	return count, nil
}

// Insert adds a new tracked account and returns its id. Returns
// driven.ErrAccountExists if the (user, raw input) pair is already tracked.
func (r *AccountRepo) Insert(ctx context.Context, acc model.TrackedAccount) (int64, error) {
	const query = `
		INSERT INTO tracked_accounts
			(user_id, raw_input, owner_id, access_token, display_name, last_post_url, last_post_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := acc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		acc.UserID, acc.RawInput, acc.OwnerID, acc.AccessToken, acc.DisplayName,
		nullable(acc.LastPostURL), nullable(acc.LastPostID), createdAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, fmt.Errorf("insert account %q for user %d: %w", acc.RawInput, acc.UserID, driven.ErrAccountExists)
		}
		return 0, fmt.Errorf("insert account %q for user %d: %w", acc.RawInput, acc.UserID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	return id, nil
}

// ListForUser returns the user's tracked accounts in insertion order.
func (r *AccountRepo) ListForUser(ctx context.Context, userID int64) ([]model.TrackedAccount, error) {
	const query = `
		SELECT id, user_id, raw_input, owner_id, access_token, display_name, last_post_url, last_post_id, created_at
		FROM tracked_accounts
		WHERE user_id = ?
		ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts for user %d: %w", userID, err)
	}
	defer rows.Close()

	var accounts []model.TrackedAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// UpdateLastSeen records the latest observed post for one account.
func (r *AccountRepo) UpdateLastSeen(ctx context.Context, accountID int64, postURL, postID string) error {
	const query = `UPDATE tracked_accounts SET last_post_url = ?, last_post_id = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, postURL, postID, accountID)
	if err != nil {
		return fmt.Errorf("update last seen for account %d: %w", accountID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update last seen for account %d: %w", accountID, driven.ErrAccountNotFound)
	}

	return nil
}

// Delete removes the account identified by (user, raw input). Returns
// driven.ErrAccountNotFound if no row matched.
func (r *AccountRepo) Delete(ctx context.Context, userID int64, rawInput string) error {
	const query = `DELETE FROM tracked_accounts WHERE user_id = ? AND raw_input = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, userID, rawInput)
	if err != nil {
		return fmt.Errorf("delete account %q for user %d: %w", rawInput, userID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete account %q for user %d: %w", rawInput, userID, driven.ErrAccountNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*model.TrackedAccount, error) {
	var acc model.TrackedAccount
	var lastURL, lastID sql.NullString
	var createdAt string

	err := s.Scan(&acc.ID, &acc.UserID, &acc.RawInput, &acc.OwnerID, &acc.AccessToken,
		&acc.DisplayName, &lastURL, &lastID, &createdAt)
	if err != nil {
		return nil, err
	}

	acc.LastPostURL = lastURL.String
	acc.LastPostID = lastID.String

	acc.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &acc, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
