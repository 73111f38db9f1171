package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fumitec/certauth/internal/auth/domain"
)

func TestRecord_DedupsRapidSuccesses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	env.AccessLogs.Record(ctx, &u.ID, testMeta, true, false)
	env.AccessLogs.Record(ctx, &u.ID, testMeta, true, false)

	entries, err := env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRecord_KeepsDistinctStageSuccesses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	// password stage then 2FA stage within the window: two distinct events
	env.AccessLogs.Record(ctx, &u.ID, testMeta, true, false)
	env.AccessLogs.Record(ctx, &u.ID, testMeta, true, true)

	entries, err := env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// retrying either stage is still suppressed
	env.AccessLogs.Record(ctx, &u.ID, testMeta, true, false)
	env.AccessLogs.Record(ctx, &u.ID, testMeta, true, true)

	entries, err = env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRecord_FailuresAreNeverDeduped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	env.AccessLogs.Record(ctx, &u.ID, testMeta, false, false)
	env.AccessLogs.Record(ctx, &u.ID, testMeta, false, false)

	entries, err := env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRecord_ParsesUserAgent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")

	env.AccessLogs.Record(ctx, &u.ID, domain.RequestMeta{
		IPAddress: "203.0.113.10",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	}, true, false)

	entries, err := env.AccessLogs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "mobile", entries[0].DeviceType)
	require.Equal(t, "safari", entries[0].Browser)
}

func TestListRecent_CapsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := createUser(t, env, "tech@fumitec.example")
	env.AccessLogs.Record(ctx, &u.ID, testMeta, false, false)

	entries, err := env.AccessLogs.ListRecent(ctx, -5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
