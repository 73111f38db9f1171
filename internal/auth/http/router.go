package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fumitec/certauth/internal/auth/service"
	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/pkg/httpx"
	"github.com/fumitec/certauth/pkg/slogx"

	_ "github.com/fumitec/certauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	TokenService     *service.TokenService
	LoginService     *service.LoginService
	MFAService       *service.MFAService
	ResetService     *service.ResetService
	AccessLogService *service.AccessLogService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerPasswordReset()
	r.registerUserInfo()
	r.registerAccessLogs()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			FumiTec Certificate Auth API
//	@version		0.1.0
//	@description	Credential and two-factor authentication service for the FumiTec certificate platform.
//	@description
//	@description				Login never returns a session directly; every account passes through TOTP
//	@description				enrollment or verification, gated by short-lived pending tokens.
//
//	@contact.name				FumiTec Platform Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT token. Format: "Bearer {token}". Pending tokens are only accepted by the 2FA endpoints.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{LoginService: r.LoginService}

	// POST /auth/login - strict rate limit by IP (authentication attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TokenService: r.TokenService,
		MFAService:   r.MFAService,
	}

	// Pending-token endpoints verify their own token shape in the handler;
	// AuthnMiddleware would reject pending tokens outright.

	// GET /auth/2fa/setup - moderate rate limit by IP
	r.Mux.Handle("GET /v1/auth/2fa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/2fa/enable - strict rate limit by IP (code guessing)
	r.Mux.Handle("POST /v1/auth/2fa/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/2fa/verify - strict rate limit by IP (code guessing)
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/2fa/disable - session required, strict rate limit by user
	r.Mux.Handle("POST /v1/auth/2fa/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.AuthnMiddleware(r.TokenService.Codec),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &ResetHandler{ResetService: r.ResetService}

	// POST /auth/password-reset/request - strict rate limit by IP
	r.Mux.Handle("POST /v1/auth/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/password-reset/confirm - strict rate limit by IP
	r.Mux.Handle("POST /v1/auth/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUserInfo() {
	h := &UserInfoHandler{Store: r.store}

	// GET /userinfo - authenticated, lenient rate limit by user
	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.TokenService.Codec),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /v1/userinfo", secured)
}

func (r *Router) registerAccessLogs() {
	h := &AccessLogsHandler{AccessLogService: r.AccessLogService}

	// GET /access-logs - admin read operation, moderate rate limit by user
	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.TokenService.Codec),
		httpx.RequireAnyRole("admin"),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/access-logs", secured)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
