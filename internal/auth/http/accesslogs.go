package http

import (
	"net/http"
	"strconv"

	"github.com/fumitec/certauth/internal/auth/service"
	"github.com/fumitec/certauth/pkg/httpx"
	"github.com/fumitec/certauth/pkg/slogx"
)

type AccessLogsHandler struct {
	AccessLogService *service.AccessLogService
}

// ServeHTTP handles GET /v1/access-logs
//
//	@Summary		List recent access logs
//	@Description	Returns the newest authentication audit entries. Admin only.
//	@Tags			Audit
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries to return (default 50, cap 500)"
//	@Success		200		{array}		domain.AccessLogEntry	"Audit entries, newest first"
//	@Failure		401		{object}	ErrorResponse			"Invalid or missing session token"
//	@Failure		403		{object}	ErrorResponse			"Caller is not an admin"
//	@Failure		500		{object}	ErrorResponse			"Internal server error"
//	@Router			/v1/access-logs [get].
func (h *AccessLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.AccessLogService.ListRecent(ctx, limit)
	if err != nil {
		log.Error("failed to list access logs", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, entries)
}
