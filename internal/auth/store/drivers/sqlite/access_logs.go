package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fumitec/certauth/internal/auth/domain"
)

type accessLogsRepo struct {
	db dbtx
}

func (r *accessLogsRepo) InsertAccessLog(ctx context.Context, e domain.AccessLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_logs (id, user_id, ip_address, user_agent, device_type, browser, success, two_factor_used, login_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, mapOptionalString(e.UserID), e.IPAddress, e.UserAgent,
		e.DeviceType, e.Browser, e.Success, e.TwoFactorUsed, e.LoginTime.UTC(),
	)
	return err
}

func (r *accessLogsRepo) HasRecentSuccess(ctx context.Context, userID string, twoFactorUsed bool, since time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM access_logs
		WHERE user_id = ? AND success = 1 AND two_factor_used = ? AND login_time >= ?`,
		userID, twoFactorUsed, since.UTC()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *accessLogsRepo) ListRecent(ctx context.Context, limit int) ([]domain.AccessLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, ip_address, user_agent, device_type, browser, success, two_factor_used, login_time
		FROM access_logs ORDER BY login_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AccessLogEntry
	for rows.Next() {
		var (
			e      domain.AccessLogEntry
			userID sql.NullString
		)
		if err := rows.Scan(&e.ID, &userID, &e.IPAddress, &e.UserAgent, &e.DeviceType, &e.Browser, &e.Success, &e.TwoFactorUsed, &e.LoginTime); err != nil {
			return nil, err
		}
		e.UserID = mapNullStringPtr(userID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *accessLogsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM access_logs WHERE login_time < ?`, cutoff.UTC())
	return err
}
