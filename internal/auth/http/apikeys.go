package http

import (
	"net/http"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
)

type APIKeysHandler struct {
	APIKeyService *service.APIKeyService
}

type mintAPIKeyRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type apiKeyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	// Token is only present in the mint response; it cannot be recovered
	// later.
	Token string `json:"token,omitempty"`
}

func toAPIKeyResponse(k domain.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		Scopes:    k.Scopes,
		ExpiresAt: k.ExpiresAt,
		RevokedAt: k.RevokedAt,
		CreatedAt: k.CreatedAt,
	}
}

// HandleMint creates an API key scoped to (a subset of) the owner's grants.
func (h *APIKeysHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var req mintAPIKeyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed json body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	minted, err := h.APIKeyService.Mint(r.Context(), userID, req.Name, req.Scopes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := toAPIKeyResponse(minted.Key)
	resp.Token = minted.Token
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleList returns the user's keys, revoked ones included.
func (h *APIKeysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	keys, err := h.APIKeyService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke withdraws a key.
func (h *APIKeysHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	keyID := r.PathValue("id")

	if err := h.APIKeyService.Revoke(r.Context(), userID, keyID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
