package http

import (
	"net/http"

	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
)

type TokenHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh rotates a refresh token into a fresh pair.
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed json body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleRevoke invalidates a single refresh token. Always 200: revoking an
// unknown token discloses nothing.
func (h *TokenHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed json body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	if err := h.TokenService.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
