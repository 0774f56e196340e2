package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lanternhq/lantern/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*jwtx.KeyManager, *jwtx.Verifier) {
	t.Helper()

	km, verifier, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: "lantern-auth"})
	require.NoError(t, err)
	return km, verifier
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	km, verifier := newManager(t)

	claims := jwtx.NewAccessClaims(
		"user-1", "session-1",
		[]string{"group-{groupId}:read-source-*"},
		"user",
		time.Minute,
		"lantern-auth",
		time.Now(),
	)

	raw, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "session-1", got.SID)
	require.Equal(t, []string{"group-{groupId}:read-source-*"}, got.Scopes)
	require.Equal(t, jwtx.TokenTypeUser, got.TokenType)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	km, verifier := newManager(t)

	claims := jwtx.NewAccessClaims("user-1", "s", nil, "", time.Minute, "lantern-auth", time.Now().Add(-2*time.Minute))
	raw, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsTampered(t *testing.T) {
	t.Parallel()

	km, verifier := newManager(t)

	claims := jwtx.NewAccessClaims("user-1", "s", nil, "", time.Minute, "lantern-auth", time.Now())
	raw, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(raw + "x")
	require.Error(t, err)

	_, err = verifier.Verify("not.a.jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	km, _ := newManager(t)

	strict := jwtx.NewVerifier(km.KeySet, "expected-issuer")
	claims := jwtx.NewAccessClaims("user-1", "s", nil, "", time.Minute, "lantern-auth", time.Now())
	raw, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = strict.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestRotationKeepsOldTokensVerifiable(t *testing.T) {
	t.Parallel()

	km, verifier := newManager(t)
	oldKid := km.GetSigner().KID()

	claims := jwtx.NewAccessClaims("user-1", "s", nil, "", time.Minute, "lantern-auth", time.Now())
	oldToken, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	// Rotate in a new key and retire the old one from signing.
	newKid, err := km.Rotate()
	require.NoError(t, err)
	require.NotEqual(t, oldKid, newKid)
	require.NoError(t, km.Retire(oldKid))
	require.Equal(t, []string{newKid}, km.ActiveKIDs())

	// Tokens signed under the retired key verify until the key is dropped.
	_, err = verifier.Verify(oldToken)
	require.NoError(t, err)

	km.Drop(oldKid)
	_, err = verifier.Verify(oldToken)
	require.Error(t, err)
}

func TestRetireLastKeyFails(t *testing.T) {
	t.Parallel()

	km, _ := newManager(t)
	require.Error(t, km.Retire(km.ActiveKIDs()[0]))
}

func TestValidateExpiryWithLeeway(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	claims := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
		},
	}
	require.NoError(t, claims.ValidateExpiryWithLeeway(30*time.Second))
	require.ErrorIs(t, claims.ValidateExpiry(), jwtx.ErrExpired)
}
