package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fumitec/certauth/internal/auth/service"
	"github.com/fumitec/certauth/pkg/httpx"
	"github.com/fumitec/certauth/pkg/slogx"
)

const minPasswordLength = 8

// ResetHandler handles the password reset flow.
type ResetHandler struct {
	ResetService *service.ResetService
}

// HandleRequest handles POST /v1/auth/password-reset/request
//
//	@Summary		Request a password reset
//	@Description	Issues a reset token for the account, delivered out of band. The response is
//	@Description	identical whether or not the email belongs to an account.
//	@Tags			PasswordReset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetRequest	true	"Account email"
//	@Success		200		{object}	MessageResponse	"Always returned on well-formed input"
//	@Failure		400		{object}	ErrorResponse	"Malformed request"
//	@Failure		500		{object}	ErrorResponse	"Internal server error"
//	@Router			/v1/auth/password-reset/request [post].
func (h *ResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse reset request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.ResetService.RequestReset(ctx, req.Email, requestMeta(r)); err != nil {
		log.Error("failed to issue reset token", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "If the email belongs to an account, a reset link has been sent",
	})
}

// HandleConfirm handles POST /v1/auth/password-reset/confirm
//
//	@Summary		Redeem a reset token
//	@Description	Sets a new password for the account behind the token. Tokens are single-use
//	@Description	and expire; unknown, expired, and spent tokens are rejected identically.
//	@Tags			PasswordReset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetConfirmRequest	true	"Raw token and new password"
//	@Success		200		{object}	MessageResponse		"Password changed"
//	@Failure		400		{object}	ErrorResponse		"Invalid token, expired token, or weak password"
//	@Failure		500		{object}	ErrorResponse		"Internal server error"
//	@Router			/v1/auth/password-reset/confirm [post].
func (h *ResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse reset confirmation", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		httpx.WriteError(w, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
		return
	}

	if err := h.ResetService.ConfirmReset(ctx, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrResetInvalidOrExpired) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_token", "Reset token is invalid or expired")
			return
		}
		log.Error("failed to confirm reset", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}
