package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lanternhq/lantern/internal/auth/domain"
	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/pkg/httpx"
	"github.com/lanternhq/lantern/pkg/scopex"
	"github.com/lanternhq/lantern/pkg/slogx"
)

type authCtxKey struct{}

// authFromContext returns the verified token, zero if authentication has
// not run.
func authFromContext(ctx context.Context) (domain.AccessTokenParsed, bool) {
	v, ok := ctx.Value(authCtxKey{}).(domain.AccessTokenParsed)
	return v, ok
}

// AuthnMiddleware verifies the bearer token, including session or api-key
// liveness. Every rejection is the same generic 401; the specific cause
// goes to the log only, so callers can't probe revocation state.
func AuthnMiddleware(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			parsed, err := tokens.Verify(ctx, raw)
			if err != nil {
				if errors.Is(err, service.ErrStoreUnavailable) {
					log.Error("token verification unavailable", "err", err)
					httpx.WriteError(w, http.StatusServiceUnavailable,
						"temporarily_unavailable", "token verification is temporarily unavailable")
					return
				}
				log.Warn("token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = context.WithValue(ctx, authCtxKey{}, parsed)
			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, parsed.UserID)
			ctx = context.WithValue(ctx, httpx.CtxKeyScopes, parsed.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope guards a route with a scope pattern such as
// "user-{userId}:read-session-*". Placeholders resolve against the
// request's path values, sudo bypasses matching, and no match means 403.
func RequireScope(required string) httpx.Middleware {
	params := scopex.Placeholders(required)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := authFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			if auth.Role == domain.RoleSudo {
				next.ServeHTTP(w, r)
				return
			}

			pathParams := make(map[string]string, len(params))
			for _, name := range params {
				pathParams[name] = r.PathValue(name)
			}

			if !scopex.Authorize(auth.Scopes, required, pathParams) {
				writeScopeError(w, required)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error responses for bearer auth.

func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}

func writeScopeError(w http.ResponseWriter, required string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+required+`"`)
	httpx.WriteError(w, http.StatusForbidden, "insufficient_scope", "")
}
