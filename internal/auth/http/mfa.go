package http

import (
	"net/http"

	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
)

type MFAHandler struct {
	MFAService *service.MFAService
}

type mfaExchangeRequest struct {
	MFAToken string `json:"totp_token"`
	Code     string `json:"code"`
}

// HandleExchange trades an MFA challenge plus code for the token pair.
func (h *MFAHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	var req mfaExchangeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed json body")
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		writeBadRequest(w, "totp_token and code are required")
		return
	}

	pair, err := h.MFAService.Complete(r.Context(), req.MFAToken, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleEnroll stages a TOTP secret for the authenticated user.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	enrollment, err := h.MFAService.EnrollTOTP(r.Context(), auth.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enrollment)
}

type mfaActivateRequest struct {
	Code string `json:"code"`
}

// HandleActivate confirms the staged secret and turns TOTP on.
func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	var req mfaActivateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "malformed json body")
		return
	}
	if req.Code == "" {
		writeBadRequest(w, "code is required")
		return
	}

	if err := h.MFAService.ActivateTOTP(r.Context(), auth.UserID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleDisable turns the second factor off for the authenticated user.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	if err := h.MFAService.Disable(r.Context(), auth.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
