package service

import (
	"context"
	"errors"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/slogx"
)

var ErrSessionNotFound = errors.New("session_not_found")

// SessionService is the session registry: one row per signed-in device, and
// revocation that outranks any token TTL.
type SessionService struct {
	Store store.Store
}

// List returns the user's live sessions, newest first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListUserSessions(ctx, userID)
}

// Get returns one session, but only if it belongs to userID.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (domain.Session, error) {
	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrSessionNotFound
		}
		return domain.Session{}, err
	}
	if session.UserID != userID {
		// Hide other users' sessions entirely.
		return domain.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Revoke terminates one session and its refresh tokens atomically. Access
// tokens bound to it fail verification from this point on, whatever their
// exp says.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().RevokeSession(ctx, sessionID); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeSessionRefreshTokens(ctx, sessionID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("session revoked", "user_id", userID, "session_id", sessionID)
	return nil
}

// RevokeAll signs the user out everywhere: every live session plus every
// outstanding refresh token. Returns how many sessions were terminated.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	var revoked int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Sessions().RevokeAllUserSessions(ctx, userID)
		if err != nil {
			return err
		}
		revoked = n
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("all sessions revoked", "user_id", userID, "count", revoked)
	return revoked, nil
}
