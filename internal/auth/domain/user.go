package domain

import "time"

// Role is the coarse authorization level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

// User is the identity and credential record for a certificate-platform
// account. TOTPSecret and TwoFactorEnabled are mutated only by the MFA
// service and the disable operation.
//
// Invariant: TwoFactorEnabled implies TOTPSecret != nil. A record with a
// secret but the flag unset is a transient enrollment state; the login flow
// self-heals it by enabling the flag.
type User struct {
	ID               string
	Email            string // unique, compared case-insensitively
	PasswordHash     string // argon2id, PHC encoded, never exposed
	Role             Role
	TOTPSecret       *string // base32 shared secret (nullable)
	TwoFactorEnabled bool
	LastLogin        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTOTPSecret reports whether an enrollment secret exists.
func (u User) HasTOTPSecret() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}
