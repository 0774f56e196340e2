package cryptox_test

import (
	"testing"

	"github.com/lanternhq/lantern/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, cryptox.VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, cryptox.VerifyPassword("wrong password", hash), cryptox.ErrPasswordMismatch)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	t.Parallel()

	h1, err := cryptox.HashPassword("same input")
	require.NoError(t, err)
	h2, err := cryptox.HashPassword("same input")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	require.Error(t, cryptox.VerifyPassword("pw", "not-a-hash"))
	require.Error(t, cryptox.VerifyPassword("pw", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"))
}
