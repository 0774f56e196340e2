package cryptox_test

import (
	"testing"

	"github.com/lanternhq/lantern/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("distinct tokens", func(t *testing.T) {
		a, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		b, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
		require.Len(t, a, 43) // 32 bytes base64url, no padding
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)
		_, err = cryptox.GenerateToken(-1)
		require.Error(t, err)
	})
}

func TestFingerprintTokenIsDeterministic(t *testing.T) {
	t.Parallel()

	fp1 := cryptox.FingerprintToken("opaque-value")
	fp2 := cryptox.FingerprintToken("opaque-value")
	require.Equal(t, fp1, fp2)
	require.NotEqual(t, fp1, cryptox.FingerprintToken("other-value"))
	require.NotContains(t, fp1, "opaque")
}

func TestGenerateNumericCode(t *testing.T) {
	t.Parallel()

	code, err := cryptox.GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		require.True(t, c >= '0' && c <= '9')
	}

	_, err = cryptox.GenerateNumericCode(0)
	require.Error(t, err)
}
