package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fumitec/certauth/internal/auth/service"
	"github.com/fumitec/certauth/pkg/httpx"
	"github.com/fumitec/certauth/pkg/slogx"
)

// TwoFactorHandler handles TOTP enrollment, verification, and disabling.
//
// The setup and verify endpoints authenticate with the pending tokens minted
// by login, not with session tokens; each handler decodes exactly the shape
// it accepts, so presenting the wrong kind of token fails like a forged one.
type TwoFactorHandler struct {
	TokenService *service.TokenService
	MFAService   *service.MFAService
}

// HandleSetup handles GET /v1/auth/2fa/setup
//
//	@Summary		Begin TOTP enrollment
//	@Description	Returns the shared secret and otpauth:// provisioning URI for the account
//	@Description	behind the pending setup token. Repeating the call before confirmation
//	@Description	returns the same secret.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.EnrollResponse	"Secret and provisioning URI"
//	@Failure		401	{object}	ErrorResponse			"Invalid or missing setup token"
//	@Failure		409	{object}	ErrorResponse			"Two-factor auth already enabled"
//	@Failure		500	{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/auth/2fa/setup [get].
func (h *TwoFactorHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}
	claims, err := h.TokenService.DecodeSetup(raw)
	if err != nil {
		log.Warn("setup token rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
		return
	}

	enroll, err := h.MFAService.BeginEnrollment(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorAlreadyEnabled) {
			httpx.WriteError(w, http.StatusConflict, "already_enabled", "Two-factor auth is already enabled")
			return
		}
		log.Error("failed to begin enrollment", "user_id", claims.Subject, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enroll)
}

// HandleEnable handles POST /v1/auth/2fa/enable
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Validates the first code against the enrolled secret, enables 2FA, and returns
//	@Description	the session token. Requires the pending setup token from login.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest				true	"TOTP code"
//	@Success		200		{object}	domain.SessionResult	"Session token and profile"
//	@Failure		400		{object}	ErrorResponse			"Invalid code or request"
//	@Failure		401		{object}	ErrorResponse			"Invalid or missing setup token"
//	@Failure		500		{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/auth/2fa/enable [post].
func (h *TwoFactorHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}
	claims, err := h.TokenService.DecodeSetup(raw)
	if err != nil {
		log.Warn("setup token rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
		return
	}

	code, ok := decodeCode(w, r, log)
	if !ok {
		return
	}

	result, err := h.MFAService.ConfirmEnrollment(ctx, claims.Subject, code, requestMeta(r))
	if err != nil {
		h.writeChallengeError(w, log, claims.Subject, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleVerify handles POST /v1/auth/2fa/verify
//
//	@Summary		Verify a TOTP code
//	@Description	Validates a code for an enrolled account and returns the session token.
//	@Description	Requires the pending verification token from login.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest				true	"TOTP code"
//	@Success		200		{object}	domain.SessionResult	"Session token and profile"
//	@Failure		400		{object}	ErrorResponse			"Invalid code or request"
//	@Failure		401		{object}	ErrorResponse			"Invalid or missing verification token"
//	@Failure		500		{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/auth/2fa/verify [post].
func (h *TwoFactorHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}
	claims, err := h.TokenService.DecodeVerify(raw)
	if err != nil {
		log.Warn("verify token rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
		return
	}

	code, ok := decodeCode(w, r, log)
	if !ok {
		return
	}

	result, err := h.MFAService.VerifyCode(ctx, claims.Subject, code, requestMeta(r))
	if err != nil {
		h.writeChallengeError(w, log, claims.Subject, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleDisable handles POST /v1/auth/2fa/disable
//
//	@Summary		Disable two-factor auth
//	@Description	Turns off 2FA after validating a current TOTP code. Requires a full session.
//	@Description	The next login routes back to enrollment.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest		true	"TOTP code"
//	@Success		200		{object}	MessageResponse	"Confirmation"
//	@Failure		400		{object}	ErrorResponse	"Invalid code or request"
//	@Failure		401		{object}	ErrorResponse	"Invalid or missing session token"
//	@Failure		500		{object}	ErrorResponse	"Internal server error"
//	@Router			/v1/auth/2fa/disable [post].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing session")
		return
	}

	code, ok := decodeCode(w, r, log)
	if !ok {
		return
	}

	if err := h.MFAService.Disable(ctx, userID, code); err != nil {
		h.writeChallengeError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Two-factor auth disabled"})
}

func (h *TwoFactorHandler) writeChallengeError(w http.ResponseWriter, log *slog.Logger, userID string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCode):
		log.Warn("invalid TOTP code", "user_id", userID)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid verification code")
	case errors.Is(err, service.ErrSetupNotStarted):
		log.Warn("2FA setup not started", "user_id", userID)
		httpx.WriteError(w, http.StatusBadRequest, "setup_not_started", "Two-factor setup has not been started")
	default:
		log.Error("two-factor operation failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

func decodeCode(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return "", false
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return "", false
	}
	return req.Code, true
}
