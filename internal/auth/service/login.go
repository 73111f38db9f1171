package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/pkg/cryptox"
)

// ErrInvalidCredentials is the uniform rejection for a failed password check.
// It covers both "no such account" and "wrong password" so responses do not
// leak which emails exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// LoginService orchestrates the password stage of authentication. A correct
// password never yields a session directly; the result is always a pending
// state that the MFA endpoints resolve.
type LoginService struct {
	Store      store.Store
	Tokens     *TokenService
	AccessLogs *AccessLogService
	Logger     *slog.Logger
}

// Login verifies the credentials and routes the account into its 2FA state:
//
//   - no TOTP secret: awaiting_setup with a setup token
//   - secret present: awaiting_verification with a verify token
//
// A secret with the enabled flag unset is a half-finished enrollment; Login
// repairs it by setting the flag before routing to verification.
func (s *LoginService) Login(ctx context.Context, email, password string, meta domain.RequestMeta) (domain.LoginResult, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.AccessLogs.Record(ctx, nil, meta, false, false)
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			// Unparseable stored hash. Reject like a mismatch but make
			// sure it shows up in the logs.
			s.Logger.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		}
		s.AccessLogs.Record(ctx, &user.ID, meta, false, false)
		return domain.LoginResult{}, ErrInvalidCredentials
	}

	s.AccessLogs.Record(ctx, &user.ID, meta, true, false)

	if !user.HasTOTPSecret() {
		token, err := s.Tokens.IssueSetup(user)
		if err != nil {
			return domain.LoginResult{}, fmt.Errorf("issue setup token: %w", err)
		}
		return domain.LoginResult{State: domain.StateAwaitingSetup, PendingToken: token}, nil
	}

	if !user.TwoFactorEnabled {
		if err := s.Store.Users().EnableTwoFactor(ctx, user.ID); err != nil {
			s.Logger.Error("failed to repair two-factor flag", "user_id", user.ID, "error", err)
		} else {
			s.Logger.Info("repaired two-factor flag for enrolled user", "user_id", user.ID)
		}
	}

	token, err := s.Tokens.IssueVerify(user)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("issue verify token: %w", err)
	}
	return domain.LoginResult{State: domain.StateAwaitingVerification, PendingToken: token}, nil
}
