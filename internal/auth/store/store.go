package store

import (
	"context"
	"errors"
	"time"

	"github.com/fumitec/certauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and make the
// transaction boundary explicit.
type Store interface {
	Users() Users
	ResetTokens() ResetTokens
	AccessLogs() AccessLogs

	// ApplyMigrations brings the schema to the current version. The schema
	// is owned by this subsystem and versioned in embedded migration files;
	// there is no runtime schema introspection.
	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. Use it for multi-step operations that
	// must be atomic (e.g. password-reset redemption).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves a user by email, case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateTOTPSecret sets the totp_secret for a user.
	UpdateTOTPSecret(ctx context.Context, userID string, secret string) error

	// EnableTwoFactor marks 2FA as enabled. Idempotent.
	EnableTwoFactor(ctx context.Context, userID string) error

	// DisableTwoFactor clears both the flag and the secret.
	DisableTwoFactor(ctx context.Context, userID string) error

	// UpdateLastLogin stamps last_login.
	UpdateLastLogin(ctx context.Context, userID string, t time.Time) error

	// IsEmpty reports whether the users table has no rows (seed check).
	IsEmpty(ctx context.Context) (bool, error)
}

type ResetTokens interface {
	// CreateResetToken stores a new reset token record (hash only).
	CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error

	// GetResetTokenByHash returns the token row by its fingerprint.
	GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error)

	// MarkResetTokenUsed sets used_at. Returns ErrNotFound if the row is
	// already used, guarding against double redemption.
	MarkResetTokenUsed(ctx context.Context, id string, usedAt time.Time) error

	// DeleteSpentForUser removes used or expired rows for a user
	// (opportunistic cleanup during a later request).
	DeleteSpentForUser(ctx context.Context, userID string, now time.Time) error

	// DeleteExpired removes all expired rows (housekeeping).
	DeleteExpired(ctx context.Context, now time.Time) error
}

type AccessLogs interface {
	// InsertAccessLog appends an audit row.
	InsertAccessLog(ctx context.Context, e domain.AccessLogEntry) error

	// HasRecentSuccess reports whether a successful entry exists for the
	// user and authentication stage at or after since. The stage is part of
	// the key so the duplicate-write guard only suppresses retries of the
	// same event: a password-stage success never hides the 2FA-stage entry
	// that follows it.
	HasRecentSuccess(ctx context.Context, userID string, twoFactorUsed bool, since time.Time) (bool, error)

	// ListRecent returns the newest entries, up to limit.
	ListRecent(ctx context.Context, limit int) ([]domain.AccessLogEntry, error)

	// DeleteOlderThan trims entries older than cutoff (retention).
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}
