package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/fumitec/certauth/internal/auth/domain"
)

func TestBeginEnrollment_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	first, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first.Secret)
	require.Contains(t, first.ProvisioningURI, "otpauth://totp/")
	require.Contains(t, first.ProvisioningURI, first.Secret)
	require.Equal(t, u.Email, first.Account)

	// page reload before confirmation must not rotate the secret
	second, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, first.Secret, second.Secret)
}

func TestBeginEnrollment_RejectedWhenAlreadyEnabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	enroll, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	_, err = env.MFA.ConfirmEnrollment(ctx, u.ID, code, testMeta)
	require.NoError(t, err)

	_, err = env.MFA.BeginEnrollment(ctx, u.ID)
	require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
}

func TestConfirmEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	enroll, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)

	t.Run("wrong code rejected", func(t *testing.T) {
		_, err := env.MFA.ConfirmEnrollment(ctx, u.ID, "000000", testMeta)
		require.ErrorIs(t, err, ErrInvalidCode)

		got, err := env.Store.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFactorEnabled)
	})

	t.Run("valid code enables and issues session", func(t *testing.T) {
		code, err := totp.GenerateCode(enroll.Secret, time.Now())
		require.NoError(t, err)

		res, err := env.MFA.ConfirmEnrollment(ctx, u.ID, code, testMeta)
		require.NoError(t, err)
		require.Equal(t, u.ID, res.User.ID)
		require.Equal(t, u.Email, res.User.Email)

		claims, err := env.Tokens.DecodeSession(res.SessionToken)
		require.NoError(t, err)
		require.Equal(t, u.ID, claims.Subject)
		require.True(t, claims.TwoFactorVerified)

		got, err := env.Store.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.TwoFactorEnabled)
		require.NotNil(t, got.LastLogin)
	})

	t.Run("retry with still-valid code succeeds", func(t *testing.T) {
		code, err := totp.GenerateCode(enroll.Secret, time.Now())
		require.NoError(t, err)

		_, err = env.MFA.ConfirmEnrollment(ctx, u.ID, code, testMeta)
		require.NoError(t, err)
	})
}

func TestConfirmEnrollment_WithoutSecret(t *testing.T) {
	env := newTestEnv(t)

	u := createUser(t, env, "tech@fumitec.example")

	_, err := env.MFA.ConfirmEnrollment(context.Background(), u.ID, "123456", testMeta)
	require.ErrorIs(t, err, ErrSetupNotStarted)
}

func TestVerifyCode_AcceptsAdjacentSteps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	enroll, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)

	now := time.Now()

	// previous and next 30s steps are inside the allowed skew
	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		code, err := totp.GenerateCodeCustom(enroll.Secret, now.Add(offset), totpValidateOpts)
		require.NoError(t, err)

		res, err := env.MFA.VerifyCode(ctx, u.ID, code, testMeta)
		require.NoError(t, err, "offset %v", offset)
		require.NotEmpty(t, res.SessionToken)
	}

	// two steps away is outside the skew
	code, err := totp.GenerateCodeCustom(enroll.Secret, now.Add(-90*time.Second), totpValidateOpts)
	require.NoError(t, err)

	_, err = env.MFA.VerifyCode(ctx, u.ID, code, testMeta)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCode_InvalidWritesNoAuditRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	_, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)

	// the password stage logs the attempt; a bad code adds nothing on top
	_, err = env.MFA.VerifyCode(ctx, u.ID, "not-a-code", testMeta)
	require.ErrorIs(t, err, ErrInvalidCode)

	entries, err := env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestVerifyCode_AuditKeepsPasswordAndTwoFactorEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	enroll, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, env.Store.Users().EnableTwoFactor(ctx, u.ID))

	res, err := env.Login.Login(ctx, u.Email, testPassword, testMeta)
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingVerification, res.State)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	_, err = env.MFA.VerifyCode(ctx, u.ID, code, testMeta)
	require.NoError(t, err)

	// both stages landed within the dedup window yet both rows survive
	entries, err := env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	stages := map[bool]int{}
	for _, e := range entries {
		require.True(t, e.Success)
		require.Equal(t, u.ID, *e.UserID)
		stages[e.TwoFactorUsed]++
	}
	require.Equal(t, map[bool]int{false: 1, true: 1}, stages)
}

func TestDisable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	enroll, err := env.MFA.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	_, err = env.MFA.ConfirmEnrollment(ctx, u.ID, code, testMeta)
	require.NoError(t, err)

	t.Run("wrong code rejected", func(t *testing.T) {
		err := env.MFA.Disable(ctx, u.ID, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("valid code clears secret and flag", func(t *testing.T) {
		code, err := totp.GenerateCode(enroll.Secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, env.MFA.Disable(ctx, u.ID, code))

		got, err := env.Store.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.False(t, got.TwoFactorEnabled)
		require.False(t, got.HasTOTPSecret())

		// next login routes back to setup
		res, err := env.Login.Login(ctx, u.Email, testPassword, testMeta)
		require.NoError(t, err)
		require.Equal(t, domain.StateAwaitingSetup, res.State)
	})
}
