package http

import (
	"net/http"

	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
)

type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP handles password login. The response is either the token pair
// or an MFA challenge the client must complete via /v1/auth/mfa.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed json body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	result, err := h.AuthService.Login(r.Context(), req.Email, req.Password,
		httpx.IPKeyExtractor(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if result.Challenge != nil {
		httpx.WriteJSON(w, http.StatusOK, result.Challenge)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result.Pair)
}
