package domain

import "time"

// PasswordResetToken is the persisted record of an issued reset token. Only
// the SHA-256 fingerprint of the raw token is stored; redemption is keyed by
// fingerprint lookup, never by "latest row for user".
type PasswordResetToken struct {
	ID          string
	UserID      string
	TokenHash   string
	ExpiresAt   time.Time
	UsedAt      *time.Time // nil means unredeemed
	RequestedIP string
	UserAgent   string
	CreatedAt   time.Time
}

// Active reports whether the token can still be redeemed at t.
func (p PasswordResetToken) Active(t time.Time) bool {
	return p.UsedAt == nil && t.Before(p.ExpiresAt)
}
