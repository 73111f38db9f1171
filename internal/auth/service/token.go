package service

import (
	"time"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/pkg/jwtx"
)

// Default lifetimes for the three token shapes. The pending-verification
// token is short on purpose: a user at the TOTP prompt either has their
// authenticator to hand or should log in again.
const (
	DefaultSetupTTL   = 24 * time.Hour
	DefaultVerifyTTL  = 10 * time.Minute
	DefaultSessionTTL = 24 * time.Hour
)

// TokenService mints and decodes the service's three token shapes. Each shape
// carries a single discriminant claim and is only accepted by its own decode
// path; see pkg/jwtx.
type TokenService struct {
	Codec  *jwtx.Codec
	Issuer string

	SetupTTL   time.Duration
	VerifyTTL  time.Duration
	SessionTTL time.Duration
}

func (s *TokenService) setupTTL() time.Duration {
	if s.SetupTTL > 0 {
		return s.SetupTTL
	}
	return DefaultSetupTTL
}

func (s *TokenService) verifyTTL() time.Duration {
	if s.VerifyTTL > 0 {
		return s.VerifyTTL
	}
	return DefaultVerifyTTL
}

func (s *TokenService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return DefaultSessionTTL
}

// IssueSetup mints a pending token for a user that must enroll in 2FA.
func (s *TokenService) IssueSetup(u domain.User) (string, error) {
	claims := jwtx.NewSetupClaims(u.ID, u.Email, string(u.Role), s.Issuer, s.setupTTL(), time.Now())
	return s.Codec.Sign(claims)
}

// IssueVerify mints a pending token for a user that must present a TOTP code.
func (s *TokenService) IssueVerify(u domain.User) (string, error) {
	claims := jwtx.NewVerifyClaims(u.ID, u.Email, string(u.Role), s.Issuer, s.verifyTTL(), time.Now())
	return s.Codec.Sign(claims)
}

// IssueSession mints the fully-authenticated bearer token.
func (s *TokenService) IssueSession(u domain.User) (string, error) {
	claims := jwtx.NewSessionClaims(u.ID, u.Email, string(u.Role), s.Issuer, s.sessionTTL(), time.Now())
	return s.Codec.Sign(claims)
}

// DecodeSetup verifies a pending-setup token.
func (s *TokenService) DecodeSetup(token string) (jwtx.SetupClaims, error) {
	return s.Codec.ParseSetup(token)
}

// DecodeVerify verifies a pending-verification token.
func (s *TokenService) DecodeVerify(token string) (jwtx.VerifyClaims, error) {
	return s.Codec.ParseVerify(token)
}

// DecodeSession verifies a session token.
func (s *TokenService) DecodeSession(token string) (jwtx.SessionClaims, error) {
	return s.Codec.ParseSession(token)
}
