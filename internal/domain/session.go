package domain

import "time"

// Session represents one device's refresh-token session for an account.
// Access tokens are stateless; sessions exist so a device can be signed
// out remotely and so refresh tokens can rotate.
type Session struct {
	Syncable
	AccountID    string    `json:"account_id"`
	RefreshToken string    `json:"refresh_token"` // Opaque, rotated on every refresh
	DeviceName   string    `json:"device_name,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// IsExpiredAt returns true if the session can no longer be refreshed.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
