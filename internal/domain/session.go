package domain

import "time"

// Session tracks a logged-in device. The refresh token itself is never
// stored; only its SHA-256 hash is kept for lookup.
type Session struct {
	Stamped
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// IsExpired returns true if the session can no longer be refreshed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
