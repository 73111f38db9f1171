package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/fumitec/certauth/internal/auth/domain"
	"github.com/fumitec/certauth/internal/auth/service"
	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/internal/auth/store/drivers/sqlite"
	"github.com/fumitec/certauth/pkg/cryptox"
	"github.com/fumitec/certauth/pkg/idx"
	"github.com/fumitec/certauth/pkg/jwtx"
)

const testPassword = "correct horse battery staple"

type testRouter struct {
	*Router
	store store.Store
}

func newTestRouter(t *testing.T) testRouter {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "certauth-test")
	require.NoError(t, err)

	tokens := &service.TokenService{Codec: codec, Issuer: "certauth-test"}
	accessLogs := &service.AccessLogService{Store: st, Logger: logger}

	r := NewRouter("test", st, logger)
	r.TokenService = tokens
	r.LoginService = &service.LoginService{Store: st, Tokens: tokens, AccessLogs: accessLogs, Logger: logger}
	r.MFAService = &service.MFAService{Store: st, Tokens: tokens, AccessLogs: accessLogs, Logger: logger, Issuer: "FumiTec Certificates"}
	r.ResetService = &service.ResetService{Store: st, Mailer: &service.LogMailer{Logger: logger}, Logger: logger}
	r.AccessLogService = accessLogs
	r.ApplyRoutes()

	return testRouter{Router: r, store: st}
}

func (tr testRouter) createUser(t *testing.T, email string, role domain.Role) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, tr.store.Users().CreateUser(context.Background(), u))
	return u
}

// do issues a request against the router with an optional JSON body and
// bearer token, decoding the JSON response into out when non-nil.
func (tr testRouter) do(t *testing.T, method, target, bearer string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestEnrollmentFlow(t *testing.T) {
	tr := newTestRouter(t)
	u := tr.createUser(t, "tech@fumitec.example", domain.RoleUser)

	// login lands in awaiting_setup
	var login domain.LoginResult
	rec := tr.do(t, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Email: u.Email, Password: testPassword}, &login)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.StateAwaitingSetup, login.State)
	require.NotEmpty(t, login.PendingToken)

	// the pending token does not open protected endpoints
	rec = tr.do(t, http.MethodGet, "/v1/userinfo", login.PendingToken, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// fetch the enrollment secret
	var enroll domain.EnrollResponse
	rec = tr.do(t, http.MethodGet, "/v1/auth/2fa/setup", login.PendingToken, nil, &enroll)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, enroll.Secret)
	require.Contains(t, enroll.ProvisioningURI, "otpauth://totp/")

	// fetching again returns the same secret
	var again domain.EnrollResponse
	rec = tr.do(t, http.MethodGet, "/v1/auth/2fa/setup", login.PendingToken, nil, &again)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, enroll.Secret, again.Secret)

	// a wrong code is rejected
	rec = tr.do(t, http.MethodPost, "/v1/auth/2fa/enable", login.PendingToken,
		CodeRequest{Code: "000000"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// the right code enables 2FA and returns a session
	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	var session domain.SessionResult
	rec = tr.do(t, http.MethodPost, "/v1/auth/2fa/enable", login.PendingToken,
		CodeRequest{Code: code}, &session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, session.SessionToken)
	require.Equal(t, u.Email, session.User.Email)

	// the session opens userinfo
	var info UserInfoResponse
	rec = tr.do(t, http.MethodGet, "/v1/userinfo", session.SessionToken, nil, &info)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, u.ID, info.UserID)
	require.True(t, info.TwoFactorEnabled)
}

func TestVerificationFlow(t *testing.T) {
	tr := newTestRouter(t)
	ctx := context.Background()

	u := tr.createUser(t, "tech@fumitec.example", domain.RoleUser)
	enroll, err := tr.MFAService.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	_, err = tr.MFAService.ConfirmEnrollment(ctx, u.ID, code, domain.RequestMeta{})
	require.NoError(t, err)

	var login domain.LoginResult
	rec := tr.do(t, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Email: u.Email, Password: testPassword}, &login)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.StateAwaitingVerification, login.State)

	// a verify token cannot be used against the setup endpoint
	rec = tr.do(t, http.MethodGet, "/v1/auth/2fa/setup", login.PendingToken, nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	var session domain.SessionResult
	rec = tr.do(t, http.MethodPost, "/v1/auth/2fa/verify", login.PendingToken,
		CodeRequest{Code: code}, &session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, session.SessionToken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tr := newTestRouter(t)
	u := tr.createUser(t, "tech@fumitec.example", domain.RoleUser)

	rec := tr.do(t, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Email: u.Email, Password: "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = tr.do(t, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Email: "nobody@fumitec.example", Password: "wrong"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	tr := newTestRouter(t)

	var last int
	for i := 0; i < 6; i++ {
		rec := tr.do(t, http.MethodPost, "/v1/auth/login", "",
			LoginRequest{Email: "nobody@fumitec.example", Password: "x"}, nil)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestPasswordResetFlow(t *testing.T) {
	tr := newTestRouter(t)
	ctx := context.Background()

	u := tr.createUser(t, "tech@fumitec.example", domain.RoleUser)

	// capture the raw token instead of logging it
	var mailed []string
	tr.ResetService.Mailer = mailerFunc(func(ctx context.Context, email, token string) error {
		mailed = append(mailed, token)
		return nil
	})

	// unknown email gets the same generic response
	rec := tr.do(t, http.MethodPost, "/v1/auth/password-reset/request", "",
		ResetRequest{Email: "nobody@fumitec.example"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, mailed)

	rec = tr.do(t, http.MethodPost, "/v1/auth/password-reset/request", "",
		ResetRequest{Email: u.Email}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mailed, 1)

	// short password rejected before touching the token
	rec = tr.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "",
		ResetConfirmRequest{Token: mailed[0], NewPassword: "short"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = tr.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "",
		ResetConfirmRequest{Token: mailed[0], NewPassword: "a much better password"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the token is spent now
	rec = tr.do(t, http.MethodPost, "/v1/auth/password-reset/confirm", "",
		ResetConfirmRequest{Token: mailed[0], NewPassword: "another password"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// the new password works
	_, err := tr.LoginService.Login(ctx, u.Email, "a much better password", domain.RequestMeta{})
	require.NoError(t, err)
}

type mailerFunc func(ctx context.Context, email, token string) error

func (f mailerFunc) SendPasswordReset(ctx context.Context, email, token string) error {
	return f(ctx, email, token)
}

func TestAccessLogs_AdminOnly(t *testing.T) {
	tr := newTestRouter(t)

	user := tr.createUser(t, "tech@fumitec.example", domain.RoleUser)
	admin := tr.createUser(t, "admin@fumitec.example", domain.RoleAdmin)

	userToken, err := tr.TokenService.IssueSession(user)
	require.NoError(t, err)
	adminToken, err := tr.TokenService.IssueSession(admin)
	require.NoError(t, err)

	rec := tr.do(t, http.MethodGet, "/v1/access-logs", userToken, nil, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = tr.do(t, http.MethodGet, "/v1/access-logs", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var entries []domain.AccessLogEntry
	rec = tr.do(t, http.MethodGet, "/v1/access-logs?limit=10", adminToken, nil, &entries)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDisableTwoFactor(t *testing.T) {
	tr := newTestRouter(t)
	ctx := context.Background()

	u := tr.createUser(t, "tech@fumitec.example", domain.RoleUser)
	enroll, err := tr.MFAService.BeginEnrollment(ctx, u.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)
	session, err := tr.MFAService.ConfirmEnrollment(ctx, u.ID, code, domain.RequestMeta{})
	require.NoError(t, err)

	code, err = totp.GenerateCode(enroll.Secret, time.Now())
	require.NoError(t, err)

	rec := tr.do(t, http.MethodPost, "/v1/auth/2fa/disable", session.SessionToken,
		CodeRequest{Code: code}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := tr.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.TwoFactorEnabled)
}

func TestHealthEndpoints(t *testing.T) {
	tr := newTestRouter(t)

	var live HealthResponse
	rec := tr.do(t, http.MethodGet, "/livez", "", nil, &live)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", live.Status)

	var ready HealthResponse
	rec = tr.do(t, http.MethodGet, "/readyz", "", nil, &ready)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}

func TestMalformedBodies(t *testing.T) {
	tr := newTestRouter(t)

	for _, target := range []string{
		"/v1/auth/login",
		"/v1/auth/password-reset/request",
		"/v1/auth/password-reset/confirm",
	} {
		req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		tr.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, fmt.Sprintf("target %s", target))
	}
}
