package http

import (
	"net/http"

	"github.com/fumitec/certauth/internal/auth/store"
	"github.com/fumitec/certauth/pkg/httpx"
	"github.com/fumitec/certauth/pkg/slogx"
)

type UserInfoHandler struct {
	Store store.Store
}

// ServeHTTP handles GET /v1/userinfo
//
//	@Summary		Get user information
//	@Description	Returns the authenticated user's profile and 2FA status.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	UserInfoResponse	"User information"
//	@Failure		401	{object}	ErrorResponse		"Invalid or missing session token"
//	@Failure		500	{object}	ErrorResponse		"Internal server error"
//	@Router			/v1/userinfo [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing session")
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("failed to load user", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, UserInfoResponse{
		UserID:           user.ID,
		Email:            user.Email,
		Role:             string(user.Role),
		TwoFactorEnabled: user.TwoFactorEnabled,
		LastLogin:        user.LastLogin,
	})
}
