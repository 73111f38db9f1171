package app

import (
	"context"
	"fmt"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/pkg/cryptox"
	"github.com/fumitec/certauth/pkg/idx"
)

// seedAdmin creates the first admin account when the users table is empty and
// AUTH_SEED_EMAIL / AUTH_SEED_PASSWORD are both set. Self-service signup is
// out of scope for this service, so a fresh deployment needs one account to
// exist before anyone can log in.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.SeedEmail == "" || app.cfg.SeedPassword == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(app.cfg.SeedPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        app.cfg.SeedEmail,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := app.db.Users().CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create seed admin: %w", err)
	}

	app.logger.Info("seed admin account created", "email", user.Email, "user_id", user.ID)
	return nil
}
