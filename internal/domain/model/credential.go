package model

import "time"

// ServiceCredential holds one user's promotion-service account. There is at
// most one per user; updates overwrite the whole record.
type ServiceCredential struct {
	UserID    int64
	Email     string
	APIKey    string
	UpdatedAt time.Time
}
