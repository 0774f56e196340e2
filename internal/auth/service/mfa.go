package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/cryptox"
	"github.com/lanternhq/lantern/pkg/idx"
	"github.com/lanternhq/lantern/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// MaxMFAAttempts is the ceiling of failed code submissions per
	// challenge. The challenge is destroyed when it is reached, so a
	// correct code on the next attempt no longer helps.
	MaxMFAAttempts = 5

	// DefaultMFATokenTTL is how long a challenge stays exchangeable.
	DefaultMFATokenTTL = 10 * time.Minute

	mfaCodeDigits = 6
)

var (
	ErrMFATokenExpired  = errors.New("mfa_token_expired")
	ErrMFATokenConsumed = errors.New("mfa_token_consumed")
	ErrInvalidMFACode   = errors.New("invalid_mfa_code")
	ErrTooManyAttempts  = errors.New("too_many_attempts")
	ErrMFANotEnrolled   = errors.New("mfa_not_enrolled")
	ErrMFANotAvailable  = errors.New("mfa_method_not_available")
)

// CodeSender delivers a one-time code out of band. Implementations wrap an
// SMS gateway or mail provider.
type CodeSender interface {
	Send(ctx context.Context, destination, code string) error
}

// MFAService runs the second-factor exchange: Begin mints a challenge at
// login, Complete trades challenge + code for the token pair. It also owns
// TOTP enrollment.
type MFAService struct {
	Store      store.Store
	Tokens     *TokenService
	SMS        CodeSender
	Email      CodeSender
	TokenTTL   time.Duration
	TOTPIssuer string
}

func (s *MFAService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return DefaultMFATokenTTL
}

// Begin creates a challenge for the user's enabled factor. For SMS and
// EMAIL the code is generated and delivered here; for TOTP the user's
// authenticator already has it.
func (s *MFAService) Begin(ctx context.Context, user domain.User, sessionID string) (*domain.MFAChallenge, error) {
	now := time.Now()

	token := domain.MFAToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Method:    user.MFAMethod,
		SessionID: sessionID,
		ExpiresAt: now.Add(s.tokenTTL()),
		CreatedAt: now,
	}

	switch user.MFAMethod {
	case domain.MFATOTP:
		if user.TOTPSecret == nil || *user.TOTPSecret == "" {
			return nil, ErrMFANotEnrolled
		}

	case domain.MFASMS:
		if user.Phone == "" || s.SMS == nil {
			return nil, ErrMFANotAvailable
		}
		code, err := cryptox.GenerateNumericCode(mfaCodeDigits)
		if err != nil {
			return nil, err
		}
		if err := s.SMS.Send(ctx, user.Phone, code); err != nil {
			return nil, fmt.Errorf("send sms code: %w", err)
		}
		token.CodeHash = cryptox.FingerprintToken(code)

	case domain.MFAEmail:
		if s.Email == nil {
			return nil, ErrMFANotAvailable
		}
		code, err := cryptox.GenerateNumericCode(mfaCodeDigits)
		if err != nil {
			return nil, err
		}
		if err := s.Email.Send(ctx, user.Email, code); err != nil {
			return nil, fmt.Errorf("send email code: %w", err)
		}
		token.CodeHash = cryptox.FingerprintToken(code)

	default:
		return nil, ErrMFANotAvailable
	}

	if err := s.Store.MFATokens().CreateMFAToken(ctx, token); err != nil {
		return nil, err
	}

	return &domain.MFAChallenge{
		MFARequired: true,
		MFAToken:    token.ID,
		Method:      user.MFAMethod,
	}, nil
}

// Complete exchanges a challenge and code for the token pair. The challenge
// is single-use: consumption is a conditional update, so two racing
// exchanges can never both succeed.
func (s *MFAService) Complete(ctx context.Context, mfaToken, code string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	token, err := s.Store.MFATokens().GetMFAToken(ctx, mfaToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidMFACode
		}
		return nil, err
	}

	if token.Consumed() {
		l.Warn("mfa token replayed", "mfa_token", token.ID)
		return nil, ErrMFATokenConsumed
	}
	if now.After(token.ExpiresAt) {
		_ = s.Store.MFATokens().DeleteMFAToken(ctx, token.ID)
		return nil, ErrMFATokenExpired
	}
	if token.Attempts >= MaxMFAAttempts {
		_ = s.Store.MFATokens().DeleteMFAToken(ctx, token.ID)
		l.Warn("mfa token exceeded max attempts", "mfa_token", token.ID, "attempts", token.Attempts)
		return nil, ErrTooManyAttempts
	}

	user, err := s.Store.Users().GetUserByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	if !s.validateCode(token, user, code) {
		attempts, err := s.Store.MFATokens().IncrementMFAAttempts(ctx, token.ID)
		if err != nil {
			l.Error("failed to increment mfa attempts", "err", err)
			return nil, ErrInvalidMFACode
		}
		if attempts >= MaxMFAAttempts {
			_ = s.Store.MFATokens().DeleteMFAToken(ctx, token.ID)
			return nil, ErrTooManyAttempts
		}
		l.Warn("mfa code rejected", "mfa_token", token.ID, "attempts", attempts)
		return nil, ErrInvalidMFACode
	}

	// Claim the token before issuing anything. ErrNotFound here means a
	// concurrent exchange won the race.
	if err := s.Store.MFATokens().ConsumeMFAToken(ctx, token.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMFATokenConsumed
		}
		return nil, err
	}

	pair, err := s.Tokens.IssueTokenPair(ctx, user, token.SessionID)
	if err != nil {
		return nil, err
	}

	l.Info("mfa exchange succeeded", "user_id", user.ID, "session_id", token.SessionID)
	return pair, nil
}

func (s *MFAService) validateCode(token domain.MFAToken, user domain.User, code string) bool {
	switch token.Method {
	case domain.MFATOTP:
		return user.TOTPSecret != nil && totp.Validate(code, *user.TOTPSecret)
	case domain.MFASMS, domain.MFAEmail:
		if token.CodeHash == "" {
			return false
		}
		got := cryptox.FingerprintToken(code)
		return subtle.ConstantTimeCompare([]byte(got), []byte(token.CodeHash)) == 1
	default:
		return false
	}
}

// EnrollTOTP generates a secret and stages it on the user. MFA is not
// active until ActivateTOTP confirms the user's authenticator produces
// matching codes.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (*domain.MFAEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.TOTPIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	if err := s.Store.Users().SetPendingTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}

	return &domain.MFAEnrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

// ActivateTOTP verifies a code against the staged secret and switches the
// user's factor to TOTP.
func (s *MFAService) ActivateTOTP(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPPending == nil || *user.TOTPPending == "" {
		return ErrMFANotEnrolled
	}
	if !totp.Validate(code, *user.TOTPPending) {
		return ErrInvalidMFACode
	}
	return s.Store.Users().ActivateTOTP(ctx, userID)
}

// Disable switches the user back to passwords only and clears TOTP state.
func (s *MFAService) Disable(ctx context.Context, userID string) error {
	return s.Store.Users().SetMFAMethod(ctx, userID, domain.MFANone)
}
