package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/pkg/cryptox"
	"github.com/fumitec/certauth/pkg/idx"
)

// ErrResetInvalidOrExpired is the uniform rejection for any reset token that
// cannot be redeemed. Unknown, expired, and already-used tokens are
// indistinguishable to the caller.
var ErrResetInvalidOrExpired = errors.New("reset token is invalid or expired")

// DefaultResetTTL is how long an issued reset token stays redeemable.
const DefaultResetTTL = 30 * time.Minute

// Mailer delivers a raw reset token to the account's email address. The
// service never stores the raw token, so delivery is the only way out.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer is the development Mailer: it writes the token to the log instead
// of sending mail. Never use it in production.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.Logger.Warn("mail delivery not configured, logging reset token",
		"email", email, "token", token)
	return nil
}

// ResetService issues and redeems password reset tokens. Only SHA-256
// fingerprints of tokens are stored; redemption is atomic and single-use.
type ResetService struct {
	Store  store.Store
	Mailer Mailer
	Logger *slog.Logger

	// TokenTTL overrides DefaultResetTTL when positive.
	TokenTTL time.Duration
}

func (s *ResetService) ttl() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultResetTTL
}

// RequestReset issues a reset token for the account behind email, if one
// exists. The caller gets the same nil result whether or not the account
// exists, so the endpoint cannot be used to enumerate emails.
func (s *ResetService) RequestReset(ctx context.Context, email string, meta domain.RequestMeta) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Logger.Debug("reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := time.Now().UTC()

	// Opportunistic cleanup of this user's spent rows; not load-bearing.
	if err := s.Store.ResetTokens().DeleteSpentForUser(ctx, user.ID, now); err != nil {
		s.Logger.Error("failed to clean spent reset tokens", "user_id", user.ID, "error", err)
	}

	record := domain.PasswordResetToken{
		ID:          idx.New().String(),
		UserID:      user.ID,
		TokenHash:   cryptox.FingerprintToken(raw),
		ExpiresAt:   now.Add(s.ttl()),
		RequestedIP: meta.IPAddress,
		UserAgent:   meta.UserAgent,
		CreatedAt:   now,
	}
	if err := s.Store.ResetTokens().CreateResetToken(ctx, record); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, raw); err != nil {
		// The token row exists but the user never got it; it simply
		// expires. Surfacing the failure would leak account existence.
		s.Logger.Error("failed to deliver reset token", "user_id", user.ID, "error", err)
	}

	return nil
}

// ConfirmReset redeems a raw token and sets the new password. The lookup,
// password update, and used_at stamp happen in one transaction, so a token
// can never be redeemed twice even under concurrent requests.
func (s *ResetService) ConfirmReset(ctx context.Context, rawToken, newPassword string) error {
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	fingerprint := cryptox.FingerprintToken(rawToken)
	now := time.Now().UTC()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.ResetTokens().GetResetTokenByHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetInvalidOrExpired
			}
			return fmt.Errorf("lookup reset token: %w", err)
		}
		if !record.Active(now) {
			return ErrResetInvalidOrExpired
		}

		if err := tx.Users().UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		if err := tx.ResetTokens().MarkResetTokenUsed(ctx, record.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetInvalidOrExpired
			}
			return fmt.Errorf("mark token used: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info("password reset completed")
	return nil
}
