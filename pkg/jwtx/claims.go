package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The three claim shapes issued by this service are deliberately disjoint:
// each carries exactly one discriminant flag, and each parse path checks its
// flag explicitly. A pending token can therefore never satisfy a
// session-token check, regardless of how its other claims look.

// SetupClaims is the pending token minted when a user has authenticated with
// a password but has no TOTP secret yet. It is only accepted by the
// enrollment endpoints.
type SetupClaims struct {
	jwt.RegisteredClaims

	Email         string `json:"email"`
	Role          string `json:"role"`
	NeedsSetup2FA bool   `json:"needs_setup_2fa"`
}

// VerifyClaims is the pending token minted when a user has authenticated
// with a password and must now present a TOTP code. It is only accepted by
// the verification endpoint.
type VerifyClaims struct {
	jwt.RegisteredClaims

	Email             string `json:"email"`
	Role              string `json:"role"`
	RequiresTwoFactor bool   `json:"requires_two_factor"`
}

// SessionClaims is the fully-authenticated token accepted by protected
// operations.
type SessionClaims struct {
	jwt.RegisteredClaims

	Email             string `json:"email"`
	Role              string `json:"role"`
	TwoFactorVerified bool   `json:"two_factor_verified"`
}

// NewSetupClaims builds pending-setup claims for the given subject.
func NewSetupClaims(subject, email, role, issuer string, ttl time.Duration, now time.Time) SetupClaims {
	return SetupClaims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Email:            email,
		Role:             role,
		NeedsSetup2FA:    true,
	}
}

// NewVerifyClaims builds pending-verification claims for the given subject.
func NewVerifyClaims(subject, email, role, issuer string, ttl time.Duration, now time.Time) VerifyClaims {
	return VerifyClaims{
		RegisteredClaims:  registered(subject, issuer, ttl, now),
		Email:             email,
		Role:              role,
		RequiresTwoFactor: true,
	}
}

// NewSessionClaims builds session claims for a subject that completed 2FA.
func NewSessionClaims(subject, email, role, issuer string, ttl time.Duration, now time.Time) SessionClaims {
	return SessionClaims{
		RegisteredClaims:  registered(subject, issuer, ttl, now),
		Email:             email,
		Role:              role,
		TwoFactorVerified: true,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
