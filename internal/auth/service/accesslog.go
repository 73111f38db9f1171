package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/pkg/idx"
	"github.com/fumitec/certauth/pkg/uaparse"
)

// successDedupWindow suppresses a second success row for the same user and
// stage within this window, so a double-submitted login does not
// double-count. The password-stage and 2FA-stage entries of one login flow
// are distinct events and are both kept.
const successDedupWindow = 5 * time.Second

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AccessLogService records authentication attempts for audit. Recording is
// best effort: a write failure is logged and swallowed, never surfaced to the
// authentication flow itself.
type AccessLogService struct {
	Store  store.Store
	Logger *slog.Logger
}

// Record appends an audit row for an authentication attempt. userID is nil
// when no account was resolved (unknown email).
func (s *AccessLogService) Record(ctx context.Context, userID *string, meta domain.RequestMeta, success, twoFactorUsed bool) {
	now := time.Now().UTC()

	if success && userID != nil {
		dup, err := s.Store.AccessLogs().HasRecentSuccess(ctx, *userID, twoFactorUsed, now.Add(-successDedupWindow))
		if err != nil {
			s.Logger.Error("access log dedup check failed", "error", err)
		} else if dup {
			return
		}
	}

	entry := domain.AccessLogEntry{
		ID:            idx.New().String(),
		UserID:        userID,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		DeviceType:    uaparse.DeviceType(meta.UserAgent),
		Browser:       uaparse.Browser(meta.UserAgent),
		Success:       success,
		TwoFactorUsed: twoFactorUsed,
		LoginTime:     now,
	}

	if err := s.Store.AccessLogs().InsertAccessLog(ctx, entry); err != nil {
		s.Logger.Error("failed to record access log", "error", err, "success", success)
	}
}

// ListRecent returns the newest audit rows, capped at maxListLimit.
func (s *AccessLogService) ListRecent(ctx context.Context, limit int) ([]domain.AccessLogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.Store.AccessLogs().ListRecent(ctx, limit)
}
