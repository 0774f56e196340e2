package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/cryptox"
	"github.com/lanternhq/lantern/pkg/idx"
	"github.com/lanternhq/lantern/pkg/jwtx"
	"github.com/lanternhq/lantern/pkg/scopex"
	"github.com/lanternhq/lantern/pkg/slogx"
)

var (
	ErrInvalidToken      = errors.New("invalid_token")
	ErrExpiredToken      = errors.New("expired_token")
	ErrSessionRevoked    = errors.New("session_revoked")
	ErrAPIKeyRevoked     = errors.New("api_key_revoked")
	ErrInsufficientScope = errors.New("insufficient_scope")
	ErrInvalidRefresh    = errors.New("invalid_refresh_token")
)

// ErrStoreUnavailable wraps storage failures during verification. The HTTP
// layer maps it to 503; a dead database must never admit a token.
var ErrStoreUnavailable = errors.New("store_unavailable")

// TokenService issues and verifies the access/refresh token pair. Access
// tokens are EdDSA JWTs; refresh tokens are opaque, stored by fingerprint,
// and rotated on every use.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Verifier   *jwtx.Verifier
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueTokenPair signs an access token for the user bound to sessionID and
// persists a fresh refresh token. The pair carries the user's scope grants
// at issue time.
func (s *TokenService) IssueTokenPair(ctx context.Context, user domain.User, sessionID string) (*domain.TokenPair, error) {
	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		p, err := s.issuePair(ctx, tx, user, sessionID, user.Scopes)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// issuePair does the actual signing and refresh persistence. st may be a Tx
// so callers can bundle session creation with issuance. Scope templates are
// bound to the owner here, so a claim never carries an open {userId}.
func (s *TokenService) issuePair(ctx context.Context, st store.Store, user domain.User, sessionID string, scopes []string) (*domain.TokenPair, error) {
	now := time.Now()
	scopes = scopex.Bind(scopes, map[string]string{"userId": user.ID})

	claims := jwtx.NewAccessClaims(user.ID, sessionID, scopes, user.Role, s.AccessTTL, s.Issuer, now)
	accessToken, err := s.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		SessionID: sessionID,
		Scopes:    scopes,
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if err := st.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// Verify checks a bearer token end to end: signature, expiry, issuer, and
// then liveness of whatever the token is bound to. User tokens die with
// their session; api-key tokens die with their key record.
func (s *TokenService) Verify(ctx context.Context, raw string) (domain.AccessTokenParsed, error) {
	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.AccessTokenParsed{}, ErrExpiredToken
		}
		return domain.AccessTokenParsed{}, ErrInvalidToken
	}

	switch claims.TokenType {
	case jwtx.TokenTypeUser:
		if claims.SID == "" {
			return domain.AccessTokenParsed{}, ErrInvalidToken
		}
		session, err := s.Store.Sessions().GetSessionByID(ctx, claims.SID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.AccessTokenParsed{}, ErrInvalidToken
			}
			return domain.AccessTokenParsed{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if session.Revoked() {
			return domain.AccessTokenParsed{}, ErrSessionRevoked
		}

		// Best effort; liveness tracking must not fail the request.
		if err := s.Store.Sessions().TouchSession(ctx, claims.SID); err != nil {
			slogx.FromContext(ctx).Warn("session touch failed", "session_id", claims.SID, "err", err)
		}

		return domain.AccessTokenParsed{
			UserID:    claims.Subject,
			Scopes:    claims.Scopes,
			Type:      domain.TokenTypeUser,
			SessionID: claims.SID,
			Role:      claims.Role,
		}, nil

	case jwtx.TokenTypeAPIKey:
		key, err := s.Store.APIKeys().GetAPIKeyByID(ctx, claims.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.AccessTokenParsed{}, ErrInvalidToken
			}
			return domain.AccessTokenParsed{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if key.Revoked() {
			return domain.AccessTokenParsed{}, ErrAPIKeyRevoked
		}
		if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
			return domain.AccessTokenParsed{}, ErrExpiredToken
		}

		return domain.AccessTokenParsed{
			UserID: claims.Subject,
			Scopes: claims.Scopes,
			Type:   domain.TokenTypeAPIKey,
			Role:   claims.Role,
		}, nil

	default:
		return domain.AccessTokenParsed{}, ErrInvalidToken
	}
}

// Refresh exchanges an opaque refresh token for a new pair. The old token is
// revoked and a new one minted in the same transaction, so a replayed token
// always fails. Session identity and granted scopes carry over unchanged.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	now := time.Now()
	fp := cryptox.FingerprintToken(refreshOpaque)

	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if rt.Revoked || now.After(rt.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, rt.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if session.Revoked() {
		return nil, ErrSessionRevoked
	}

	user, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}
		p, err := s.issuePair(ctx, tx, user, rt.SessionID, rt.Scopes)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Store.Sessions().TouchSession(ctx, rt.SessionID); err != nil {
		slogx.FromContext(ctx).Warn("session touch failed", "session_id", rt.SessionID, "err", err)
	}

	return pair, nil
}

// RevokeRefreshToken revokes a single refresh token (by its opaque value).
func (s *TokenService) RevokeRefreshToken(ctx context.Context, refreshOpaque string) error {
	fp := cryptox.FingerprintToken(refreshOpaque)
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp)
}
