package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
	authhttp "github.com/lanternhq/lantern/internal/auth/http"
	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/internal/auth/store/drivers/sqlite"
	"github.com/lanternhq/lantern/pkg/cryptox"
	"github.com/lanternhq/lantern/pkg/idx"
	"github.com/lanternhq/lantern/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *sqlite.Store
	tokens *service.TokenService
	router *authhttp.Router
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, verifier, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: "test-issuer"})
	require.NoError(t, err)

	tokens := &service.TokenService{
		KeyManager: km,
		Verifier:   verifier,
		Store:      st,
		Issuer:     "test-issuer",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	mfa := &service.MFAService{Store: st, Tokens: tokens, TOTPIssuer: "lantern"}
	auth := &service.AuthService{Store: st, Tokens: tokens, MFA: mfa}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	router := authhttp.NewRouter(km.KeySet, "test", st, logger)
	router.AuthService = auth
	router.TokenService = tokens
	router.MFAService = mfa
	router.SessionService = &service.SessionService{Store: st}
	router.APIKeyService = &service.APIKeyService{Store: st, KeyManager: km, Issuer: "test-issuer"}
	router.ApplyRoutes()

	return &testEnv{store: st, tokens: tokens, router: router}
}

func (e *testEnv) seedUser(t *testing.T, email, role string, scopes []string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword("correct-horse-battery")
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Scopes:       scopes,
		MFAMethod:    domain.MFANone,
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) login(t *testing.T, email string) *domain.TokenPair {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": "correct-horse-battery",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.RemoteAddr = "203.0.113.9:1234"
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair domain.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	return &pair
}

func (e *testEnv) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.9:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestScopeEnforcementOnSessions(t *testing.T) {
	env := newEnv(t)

	alice := env.seedUser(t, "alice@example.com", domain.RoleUser,
		[]string{"user-{userId}:read-session-*"})
	bob := env.seedUser(t, "bob@example.com", domain.RoleUser, nil)

	pair := env.login(t, "alice@example.com")

	// Alice's grant resolves against her own id and permits the read.
	rec := env.do(http.MethodGet, "/v1/users/"+alice.ID+"/sessions", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The same grant does not reach Bob's sessions.
	rec = env.do(http.MethodGet, "/v1/users/"+bob.ID+"/sessions", pair.AccessToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")
}

func TestAuthnRejections(t *testing.T) {
	env := newEnv(t)
	alice := env.seedUser(t, "alice@example.com", domain.RoleUser, nil)

	rec := env.do(http.MethodGet, "/v1/users/"+alice.ID+"/sessions", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/v1/users/"+alice.ID+"/sessions", "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestSudoBypassesScopeMatching(t *testing.T) {
	env := newEnv(t)

	env.seedUser(t, "root@example.com", domain.RoleSudo, nil)
	target := env.seedUser(t, "target@example.com", domain.RoleUser, nil)

	pair := env.login(t, "root@example.com")

	rec := env.do(http.MethodGet, "/v1/users/"+target.ID+"/sessions", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRevokedSessionIsRejectedAtTheDoor(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	alice := env.seedUser(t, "alice@example.com", domain.RoleUser,
		[]string{"user-{userId}:read-session-*"})
	pair := env.login(t, "alice@example.com")

	rec := env.do(http.MethodGet, "/v1/users/"+alice.ID+"/sessions", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	sessions, err := env.store.Sessions().ListUserSessions(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NoError(t, env.store.Sessions().RevokeSession(ctx, sessions[0].ID))

	// Same unexpired token, now refused.
	rec = env.do(http.MethodGet, "/v1/users/"+alice.ID+"/sessions", pair.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadJSON(t *testing.T) {
	env := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader([]byte("{")))
	req.RemoteAddr = "203.0.113.9:1234"
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
