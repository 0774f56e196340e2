package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionListAndGet(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions := &SessionService{Store: st}

	alice := seedUser(t, st, "alice@example.com", nil)
	bob := seedUser(t, st, "bob@example.com", nil)

	s1 := seedSession(t, st, alice.ID)
	s2 := seedSession(t, st, alice.ID)
	seedSession(t, st, bob.ID)

	list, err := sessions.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	got, err := sessions.Get(ctx, alice.ID, s1.ID)
	require.NoError(t, err)
	require.Equal(t, s1.ID, got.ID)

	// Bob cannot see or touch Alice's session.
	_, err = sessions.Get(ctx, bob.ID, s2.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, sessions.Revoke(ctx, bob.ID, s2.ID), ErrSessionNotFound)
}

func TestSessionRevokeKillsRefreshTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	sessions := &SessionService{Store: st}

	user := seedUser(t, st, "alice@example.com", nil)
	session := seedSession(t, st, user.ID)

	pair, err := tokens.IssueTokenPair(ctx, user, session.ID)
	require.NoError(t, err)

	require.NoError(t, sessions.Revoke(ctx, user.ID, session.ID))

	_, err = tokens.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrSessionRevoked)

	_, err = tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Revoked sessions drop out of the listing.
	list, err := sessions.List(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRevokeAllSignsOutEverywhere(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tokens := newTokenService(t, st)
	sessions := &SessionService{Store: st}

	user := seedUser(t, st, "alice@example.com", nil)

	var pairs []string
	for range 3 {
		session := seedSession(t, st, user.ID)
		pair, err := tokens.IssueTokenPair(ctx, user, session.ID)
		require.NoError(t, err)
		pairs = append(pairs, pair.AccessToken)
	}

	n, err := sessions.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	for _, access := range pairs {
		_, err := tokens.Verify(ctx, access)
		require.ErrorIs(t, err, ErrSessionRevoked)
	}

	list, err := sessions.List(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}
