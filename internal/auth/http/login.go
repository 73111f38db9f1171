package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fumitec/certauth/internal/auth/service"
	"github.com/fumitec/certauth/pkg/httpx"
	"github.com/fumitec/certauth/pkg/slogx"
)

// LoginHandler handles the password stage of authentication.
type LoginHandler struct {
	LoginService *service.LoginService
}

// ServeHTTP handles POST /v1/auth/login
//
//	@Summary		Authenticate with email and password
//	@Description	Verifies credentials and returns a pending state. The response is never a session:
//	@Description	accounts without 2FA get state "awaiting_setup", enrolled accounts get "awaiting_verification".
//	@Description	The pending_token gates the corresponding 2FA endpoint.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest		true	"Credentials"
//	@Success		200		{object}	domain.LoginResult	"Pending state and token"
//	@Failure		400		{object}	ErrorResponse		"Malformed request"
//	@Failure		401		{object}	ErrorResponse		"Invalid email or password"
//	@Failure		500		{object}	ErrorResponse		"Internal server error"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse login request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	result, err := h.LoginService.Login(ctx, req.Email, req.Password, requestMeta(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}
