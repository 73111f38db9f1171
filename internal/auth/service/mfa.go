package service

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/internal/auth/store"
)

var (
	// ErrInvalidCode rejects a TOTP code that fails validation.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrSetupNotStarted means a code was presented before any enrollment
	// secret exists for the account.
	ErrSetupNotStarted = errors.New("two-factor setup has not been started")
	// ErrTwoFactorAlreadyEnabled guards enrollment against accounts that
	// already completed it.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor auth is already enabled")
)

// totpValidateOpts matches the provisioning parameters: 6 digits, SHA-1,
// 30-second steps, and one step of clock skew either side.
var totpValidateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// MFAService manages TOTP enrollment and verification.
type MFAService struct {
	Store      store.Store
	Tokens     *TokenService
	AccessLogs *AccessLogService
	Logger     *slog.Logger

	// Issuer is the label shown in authenticator apps.
	Issuer string
}

// BeginEnrollment returns the shared secret and provisioning URI for an
// account in the awaiting_setup state. Calling it again before confirmation
// returns the same secret, so a user can re-scan the QR code after a page
// reload without invalidating their authenticator entry.
func (s *MFAService) BeginEnrollment(ctx context.Context, userID string) (domain.EnrollResponse, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.EnrollResponse{}, fmt.Errorf("get user: %w", err)
	}
	if user.TwoFactorEnabled {
		return domain.EnrollResponse{}, ErrTwoFactorAlreadyEnabled
	}

	opts := totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	}

	if user.HasTOTPSecret() {
		raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).
			DecodeString(strings.TrimRight(*user.TOTPSecret, "="))
		if err != nil {
			return domain.EnrollResponse{}, fmt.Errorf("decode stored secret: %w", err)
		}
		opts.Secret = raw
	}

	key, err := totp.Generate(opts)
	if err != nil {
		return domain.EnrollResponse{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	if err := s.Store.Users().UpdateTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return domain.EnrollResponse{}, fmt.Errorf("store TOTP secret: %w", err)
	}

	return domain.EnrollResponse{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		Issuer:          s.Issuer,
		Account:         user.Email,
	}, nil
}

// ConfirmEnrollment validates the first code against the enrolled secret,
// enables 2FA, and promotes the account to a full session. Retrying with a
// still-valid code after the flag is already set succeeds again; enabling is
// idempotent.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, userID, code string, meta domain.RequestMeta) (domain.SessionResult, error) {
	return s.completeChallenge(ctx, userID, code, meta)
}

// VerifyCode validates a TOTP code for an enrolled account and issues the
// session. Used by the awaiting_verification state.
func (s *MFAService) VerifyCode(ctx context.Context, userID, code string, meta domain.RequestMeta) (domain.SessionResult, error) {
	return s.completeChallenge(ctx, userID, code, meta)
}

func (s *MFAService) completeChallenge(ctx context.Context, userID, code string, meta domain.RequestMeta) (domain.SessionResult, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("get user: %w", err)
	}
	if !user.HasTOTPSecret() {
		return domain.SessionResult{}, ErrSetupNotStarted
	}

	// A rejected code writes no audit row of its own; the password stage
	// already logged this attempt.
	ok, err := totp.ValidateCustom(code, *user.TOTPSecret, time.Now().UTC(), totpValidateOpts)
	if err != nil || !ok {
		return domain.SessionResult{}, ErrInvalidCode
	}

	if !user.TwoFactorEnabled {
		if err := s.Store.Users().EnableTwoFactor(ctx, userID); err != nil {
			return domain.SessionResult{}, fmt.Errorf("enable two-factor: %w", err)
		}
	}

	if err := s.Store.Users().UpdateLastLogin(ctx, userID, time.Now().UTC()); err != nil {
		s.Logger.Error("failed to update last login", "user_id", userID, "error", err)
	}

	token, err := s.Tokens.IssueSession(user)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("issue session token: %w", err)
	}

	s.AccessLogs.Record(ctx, &user.ID, meta, true, true)

	return domain.SessionResult{
		SessionToken: token,
		User:         domain.ProfileOf(user),
	}, nil
}

// Disable turns off 2FA after validating a current code. The secret is
// cleared along with the flag, so the next login routes to enrollment.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !user.HasTOTPSecret() {
		return ErrSetupNotStarted
	}

	ok, err := totp.ValidateCustom(code, *user.TOTPSecret, time.Now().UTC(), totpValidateOpts)
	if err != nil || !ok {
		return ErrInvalidCode
	}

	if err := s.Store.Users().DisableTwoFactor(ctx, userID); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	s.Logger.Info("two-factor auth disabled", "user_id", userID)
	return nil
}
