package scopex_test

import (
	"testing"

	"github.com/lanternhq/lantern/pkg/scopex"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	params := map[string]string{"groupId": "42", "id": "abc"}

	require.Equal(t, "group-42:write-source-*",
		scopex.Resolve("group-{groupId}:write-source-*", params))
	require.Equal(t, "group-42:read-source-abc",
		scopex.Resolve("group-{groupId}:read-source-{id}", params))

	t.Run("missing parameter stays literal", func(t *testing.T) {
		require.Equal(t, "group-{groupId}:read", scopex.Resolve("group-{groupId}:read", map[string]string{"id": "1"}))
	})

	t.Run("no placeholders", func(t *testing.T) {
		require.Equal(t, "admin:read", scopex.Resolve("admin:read", params))
	})

	t.Run("unterminated brace", func(t *testing.T) {
		require.Equal(t, "group-{groupId:read", scopex.Resolve("group-{groupId:read", params))
	})
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"groupId", "id"}, scopex.Placeholders("group-{groupId}:read-source-{id}"))
	require.Empty(t, scopex.Placeholders("admin:read"))
}

func TestMatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		granted  string
		required string
		want     bool
	}{
		{"group-42:write-source-*", "group-42:write-source-setup", true},
		{"group-42:write-source-*", "group-42:write-source-", true},
		{"group-42:write-source-*", "group-43:write-source-setup", false},
		{"group-42:write-source-*", "group-42:read-source-setup", false},
		{"group-7:read-source-abc", "group-7:read-source-abc", true},
		{"group-7:read-source-abc", "group-7:read-source-abd", false},
		{"*:read-source-abc", "group-7:read-source-abc", true},
		{"group-7:*", "group-7:delete-source-xyz", true},
		// Segment counts must line up; a shorter grant never matches.
		{"group-7", "group-7:read-source-abc", false},
		{"group-7:read:extra", "group-7:read", false},
		{"", "group-7:read", false},
		{"group-7:read", "", false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, scopex.Match(tc.granted, tc.required),
			"granted=%q required=%q", tc.granted, tc.required)
	}
}

func TestBind(t *testing.T) {
	t.Parallel()

	owner := map[string]string{"userId": "42"}

	require.Equal(t,
		[]string{"user-42:read-session-*", "admin:read"},
		scopex.Bind([]string{"user-{userId}:read-session-*", "admin:read"}, owner))

	t.Run("unknown placeholders stay literal", func(t *testing.T) {
		require.Equal(t,
			[]string{"group-{groupId}:write-source-*"},
			scopex.Bind([]string{"group-{groupId}:write-source-*"}, owner))
	})

	t.Run("empty grants", func(t *testing.T) {
		require.Nil(t, scopex.Bind(nil, owner))
	})
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	t.Run("required template resolved from path params", func(t *testing.T) {
		granted := []string{"group-42:write-source-*"}
		params := map[string]string{"groupId": "42"}

		require.True(t, scopex.Authorize(granted, "group-{groupId}:write-source-setup", params))
		require.False(t, scopex.Authorize(granted, "group-43:write-source-setup", params))
	})

	t.Run("bound grant matches only the exact resource", func(t *testing.T) {
		granted := scopex.Bind(
			[]string{"group-{groupId}:read-source-{id}"},
			map[string]string{"groupId": "7", "id": "abc"},
		)

		require.True(t, scopex.Authorize(granted, "group-7:read-source-abc", nil))
		require.False(t, scopex.Authorize(granted, "group-7:read-source-xyz", nil))
		require.False(t, scopex.Authorize(granted, "group-8:read-source-abc", nil))
	})

	t.Run("granted templates never resolve from the request", func(t *testing.T) {
		// An unbound grant template must not inherit whatever id the caller
		// put in the URL, or a self-scope would reach every user.
		granted := []string{"user-{userId}:read-session-*"}
		params := map[string]string{"userId": "bob"}

		require.False(t, scopex.Authorize(granted, "user-{userId}:read-session-list", params))
		require.False(t, scopex.Authorize(granted, "user-bob:read-session-list", params))
	})

	t.Run("default deny", func(t *testing.T) {
		require.False(t, scopex.Authorize(nil, "group-1:read", nil))
		require.False(t, scopex.Authorize([]string{}, "group-1:read", nil))
	})

	t.Run("any matching grant suffices", func(t *testing.T) {
		granted := []string{"user-1:read-info", "group-9:delete-source-*"}
		params := map[string]string{"groupId": "9"}
		require.True(t, scopex.Authorize(granted, "group-{groupId}:delete-source-src_1", params))
	})
}
