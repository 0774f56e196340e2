package http

import (
	"net/http"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
)

type SessionsHandler struct {
	SessionService *service.SessionService
}

type sessionResponse struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:         s.ID,
		IPAddress:  s.IPAddress,
		UserAgent:  s.UserAgent,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
	}
}

// HandleList returns the user's live sessions.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	sessions, err := h.SessionService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke terminates one session.
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	sessionID := r.PathValue("id")

	if err := h.SessionService.Revoke(r.Context(), userID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleRevokeAll signs the user out everywhere.
func (h *SessionsHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	n, err := h.SessionService.RevokeAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}
