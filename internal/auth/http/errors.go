package http

import (
	"errors"
	"net/http"

	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
	"github.com/lanternhq/lantern/pkg/slogx"
)

// writeServiceError maps service sentinels onto wire responses. Auth
// failures collapse into generic responses on purpose: the precise cause
// (revoked vs expired vs consumed) is logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "")

	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredToken),
		errors.Is(err, service.ErrSessionRevoked),
		errors.Is(err, service.ErrAPIKeyRevoked),
		errors.Is(err, service.ErrInvalidRefresh):
		log.Warn("token rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "")

	case errors.Is(err, service.ErrInvalidMFACode),
		errors.Is(err, service.ErrMFATokenExpired),
		errors.Is(err, service.ErrMFATokenConsumed),
		errors.Is(err, service.ErrTooManyAttempts):
		log.Warn("mfa exchange rejected", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "mfa_failed", "")

	case errors.Is(err, service.ErrMFANotEnrolled),
		errors.Is(err, service.ErrMFANotAvailable):
		httpx.WriteError(w, http.StatusBadRequest, "mfa_unavailable", "")

	case errors.Is(err, service.ErrInsufficientScope):
		httpx.WriteError(w, http.StatusForbidden, "insufficient_scope", "")

	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrAPIKeyNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "")

	case errors.Is(err, service.ErrInvalidScopes):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_scopes", "")

	case errors.Is(err, service.ErrStoreUnavailable):
		log.Error("storage unavailable", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "")

	default:
		log.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", desc)
}
