package service

import (
	"context"
	"testing"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/idx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// captureSender records the last delivered code instead of sending it.
type captureSender struct {
	destination string
	code        string
}

func (c *captureSender) Send(_ context.Context, destination, code string) error {
	c.destination = destination
	c.code = code
	return nil
}

func newMFAService(t *testing.T, st store.Store, tokens *TokenService) (*MFAService, *captureSender) {
	t.Helper()

	sender := &captureSender{}
	return &MFAService{
		Store:      st,
		Tokens:     tokens,
		SMS:        sender,
		Email:      sender,
		TOTPIssuer: "lantern",
	}, sender
}

func seedSMSUser(t *testing.T, st store.Store, email, phone string) domain.User {
	t.Helper()

	user := domain.User{
		ID:        idx.New().String(),
		Email:     email,
		Phone:     phone,
		Role:      domain.RoleUser,
		Scopes:    []string{"user-1:read-info"},
		MFAMethod: domain.MFASMS,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

func TestSMSExchange(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	mfa, sender := newMFAService(t, st, tokens)

	user := seedSMSUser(t, st, "sms@example.com", "+61400000000")
	session := seedSession(t, st, user.ID)

	challenge, err := mfa.Begin(ctx, user, session.ID)
	require.NoError(t, err)
	require.True(t, challenge.MFARequired)
	require.Equal(t, domain.MFASMS, challenge.Method)
	require.Equal(t, user.Phone, sender.destination)
	require.Len(t, sender.code, 6)

	pair, err := mfa.Complete(ctx, challenge.MFAToken, sender.code)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	parsed, err := tokens.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, parsed.UserID)
	require.Equal(t, session.ID, parsed.SessionID)

	// The challenge is single use.
	_, err = mfa.Complete(ctx, challenge.MFAToken, sender.code)
	require.ErrorIs(t, err, ErrMFATokenConsumed)
}

func TestMFAAttemptCeiling(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	mfa, sender := newMFAService(t, st, tokens)

	user := seedSMSUser(t, st, "ceiling@example.com", "+61400000001")
	session := seedSession(t, st, user.ID)

	challenge, err := mfa.Begin(ctx, user, session.ID)
	require.NoError(t, err)

	for i := 0; i < MaxMFAAttempts-1; i++ {
		_, err := mfa.Complete(ctx, challenge.MFAToken, "000000")
		require.ErrorIs(t, err, ErrInvalidMFACode, "attempt %d", i+1)
	}

	// The fifth failure hits the ceiling and destroys the challenge.
	_, err = mfa.Complete(ctx, challenge.MFAToken, "000000")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// Even the correct code is useless now.
	_, err = mfa.Complete(ctx, challenge.MFAToken, sender.code)
	require.ErrorIs(t, err, ErrInvalidMFACode)
}

func TestMFATokenExpiry(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	mfa, _ := newMFAService(t, st, tokens)

	user := seedUser(t, st, "expired@example.com", nil)
	session := seedSession(t, st, user.ID)

	stale := domain.MFAToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Method:    domain.MFASMS,
		CodeHash:  "irrelevant",
		SessionID: session.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, st.MFATokens().CreateMFAToken(ctx, stale))

	_, err := mfa.Complete(ctx, stale.ID, "123456")
	require.ErrorIs(t, err, ErrMFATokenExpired)
}

func TestTOTPEnrollActivateAndExchange(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	mfa, _ := newMFAService(t, st, tokens)

	user := seedUser(t, st, "totp@example.com", []string{"user-1:read-info"})

	enrollment, err := mfa.EnrollTOTP(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.URL, "otpauth://")

	// A wrong code does not activate.
	require.ErrorIs(t, mfa.ActivateTOTP(ctx, user.ID, "000000"), ErrInvalidMFACode)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, mfa.ActivateTOTP(ctx, user.ID, code))

	activated, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MFATOTP, activated.MFAMethod)
	require.True(t, activated.MFARequired())

	// Full login-time exchange against the activated secret.
	session := seedSession(t, st, user.ID)
	challenge, err := mfa.Begin(ctx, activated, session.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MFATOTP, challenge.Method)

	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	pair, err := mfa.Complete(ctx, challenge.MFAToken, code)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
}

func TestDisableMFAClearsSecrets(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	mfa, _ := newMFAService(t, st, tokens)

	user := seedUser(t, st, "off@example.com", nil)

	enrollment, err := mfa.EnrollTOTP(ctx, user.ID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, mfa.ActivateTOTP(ctx, user.ID, code))

	require.NoError(t, mfa.Disable(ctx, user.ID))

	disabled, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MFANone, disabled.MFAMethod)
	require.Nil(t, disabled.TOTPSecret)
	require.False(t, disabled.MFARequired())
}
