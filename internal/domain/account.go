package domain

import "time"

// Account represents a caregiver identity. The sharing core treats caller
// identity as an opaque string; accounts exist so devices can authenticate
// and so invitations can show a human name alongside the inviter ID.
type Account struct {
	Syncable
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	DisplayName  string    `json:"display_name"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// Name returns the best available name to display for the account.
// Prefers DisplayName, falls back to email.
func (a *Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Email
}
