package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/pkg/cryptox"
	"github.com/fumitec/certauth/pkg/idx"
)

func TestRequestReset_UnknownEmailSilentlySucceeds(t *testing.T) {
	env := newTestEnv(t)

	err := env.Reset.RequestReset(context.Background(), "nobody@fumitec.example", testMeta)
	require.NoError(t, err)
	require.Empty(t, *env.Mailed)
}

func TestRequestReset_DeliversRawTokenStoresFingerprint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	require.NoError(t, env.Reset.RequestReset(ctx, u.Email, testMeta))
	require.Len(t, *env.Mailed, 1)

	raw := (*env.Mailed)[0]

	// only the fingerprint is in the database
	_, err := env.Store.ResetTokens().GetResetTokenByHash(ctx, raw)
	require.ErrorIs(t, err, store.ErrNotFound)

	record, err := env.Store.ResetTokens().GetResetTokenByHash(ctx, cryptox.FingerprintToken(raw))
	require.NoError(t, err)
	require.Equal(t, u.ID, record.UserID)
	require.True(t, record.Active(time.Now().UTC()))
}

func TestConfirmReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	require.NoError(t, env.Reset.RequestReset(ctx, u.Email, testMeta))
	raw := (*env.Mailed)[0]

	t.Run("bogus token rejected", func(t *testing.T) {
		err := env.Reset.ConfirmReset(ctx, "not-a-real-token", "new password 1")
		require.ErrorIs(t, err, ErrResetInvalidOrExpired)
	})

	t.Run("valid token changes the password once", func(t *testing.T) {
		require.NoError(t, env.Reset.ConfirmReset(ctx, raw, "brand new password"))

		// old password no longer works, new one does
		_, err := env.Login.Login(ctx, u.Email, testPassword, testMeta)
		require.ErrorIs(t, err, ErrInvalidCredentials)

		res, err := env.Login.Login(ctx, u.Email, "brand new password", testMeta)
		require.NoError(t, err)
		require.Equal(t, domain.StateAwaitingSetup, res.State)
	})

	t.Run("second redemption rejected", func(t *testing.T) {
		err := env.Reset.ConfirmReset(ctx, raw, "yet another password")
		require.ErrorIs(t, err, ErrResetInvalidOrExpired)

		// and the password did not change again
		_, err = env.Login.Login(ctx, u.Email, "brand new password", testMeta)
		require.NoError(t, err)
	})
}

func TestConfirmReset_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	// plant an already-expired token directly
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NoError(t, env.Store.ResetTokens().CreateResetToken(ctx, domain.PasswordResetToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	err = env.Reset.ConfirmReset(ctx, raw, "new password")
	require.ErrorIs(t, err, ErrResetInvalidOrExpired)

	// old password still works
	_, err = env.Login.Login(ctx, u.Email, testPassword, testMeta)
	require.NoError(t, err)
}

func TestRequestReset_NewRequestLeavesOlderActiveToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	require.NoError(t, env.Reset.RequestReset(ctx, u.Email, testMeta))
	require.NoError(t, env.Reset.RequestReset(ctx, u.Email, testMeta))
	require.Len(t, *env.Mailed, 2)

	// both tokens stay redeemable until one is used
	first := (*env.Mailed)[0]
	require.NoError(t, env.Reset.ConfirmReset(ctx, first, "password via first token"))
}
