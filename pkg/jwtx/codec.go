package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the uniform rejection for any token that fails
// verification. Callers never learn whether a token was malformed, expired,
// mis-signed, or of the wrong shape.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// ErrMissingKey reports a Codec constructed without signing key material.
var ErrMissingKey = errors.New("jwtx: signing key is required")

const minKeyBytes = 32

// Codec signs and verifies the service's bearer tokens with HS256. The key
// is required configuration; there is no built-in fallback.
type Codec struct {
	key    []byte
	issuer string
	leeway time.Duration
}

// NewCodec builds a Codec. It fails when the key is absent or shorter than
// 256 bits, so a misconfigured process dies at startup rather than signing
// with a weak secret.
func NewCodec(key []byte, issuer string) (*Codec, error) {
	if len(key) < minKeyBytes {
		return nil, ErrMissingKey
	}

	return &Codec{
		key:    key,
		issuer: issuer,
		leeway: 30 * time.Second,
	}, nil
}

// Sign encodes any of the claim shapes into a signed compact JWT.
func (c *Codec) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// ParseSetup verifies a pending-setup token. The NeedsSetup2FA discriminant
// must be explicitly true.
func (c *Codec) ParseSetup(token string) (SetupClaims, error) {
	var claims SetupClaims
	if err := c.parse(token, &claims); err != nil {
		return SetupClaims{}, ErrInvalidToken
	}
	if !claims.NeedsSetup2FA {
		return SetupClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// ParseVerify verifies a pending-verification token. The RequiresTwoFactor
// discriminant must be explicitly true.
func (c *Codec) ParseVerify(token string) (VerifyClaims, error) {
	var claims VerifyClaims
	if err := c.parse(token, &claims); err != nil {
		return VerifyClaims{}, ErrInvalidToken
	}
	if !claims.RequiresTwoFactor {
		return VerifyClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// ParseSession verifies a session token. The TwoFactorVerified discriminant
// must be explicitly true, so pending tokens are always rejected here.
func (c *Codec) ParseSession(token string) (SessionClaims, error) {
	var claims SessionClaims
	if err := c.parse(token, &claims); err != nil {
		return SessionClaims{}, ErrInvalidToken
	}
	if !claims.TwoFactorVerified {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
