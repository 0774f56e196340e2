package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/cryptox"
	"github.com/lanternhq/lantern/pkg/idx"
	"github.com/lanternhq/lantern/pkg/slogx"
)

var ErrInvalidCredentials = errors.New("invalid_credentials")

// AuthService handles password login. The outcome is either a token pair
// (no second factor) or an MFA challenge the client must complete.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	MFA    *MFAService
}

// LoginResult is the union of the two login outcomes; exactly one field is
// set.
type LoginResult struct {
	Pair      *domain.TokenPair
	Challenge *domain.MFAChallenge
}

// Login verifies the password, records a session for the device, and either
// issues tokens or hands back an MFA challenge bound to that session.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	l := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so unknown emails cost the same as
			// wrong passwords.
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("password verification failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	session := domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}

	if user.MFARequired() {
		if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
			return nil, err
		}
		challenge, err := s.MFA.Begin(ctx, user, session.ID)
		if err != nil {
			return nil, err
		}
		l.Info("mfa challenge issued", "user_id", user.ID, "method", challenge.Method)
		return &LoginResult{Challenge: challenge}, nil
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return err
		}
		p, err := s.Tokens.issuePair(ctx, tx, user, session.ID, user.Scopes)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Info("login succeeded", "user_id", user.ID, "session_id", session.ID)
	return &LoginResult{Pair: pair}, nil
}
