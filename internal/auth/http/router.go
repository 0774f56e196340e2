package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lanternhq/lantern/internal/auth/service"
	"github.com/lanternhq/lantern/internal/auth/store"
	"github.com/lanternhq/lantern/pkg/httpx"
	"github.com/lanternhq/lantern/pkg/jwtx"
	"github.com/lanternhq/lantern/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AuthService    *service.AuthService
	TokenService   *service.TokenService
	MFAService     *service.MFAService
	SessionService *service.SessionService
	APIKeyService  *service.APIKeyService
}

func NewRouter(keys *jwtx.KeySet, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerSessions()
	r.registerAPIKeys()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{AuthService: r.AuthService}

	// Brute force protection keyed on IP plus the submitted email, so one
	// address can't be hammered from a botnet and one IP can't spray.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	token := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(token.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/revoke",
		httpx.Chain(http.HandlerFunc(token.HandleRevoke),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	// The exchange is unauthenticated (the caller only holds the MFA
	// token), so it gets the strictest limit.
	r.Mux.Handle("POST /v1/auth/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleExchange),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/mfa/totp/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/totp/activate",
		httpx.Chain(http.HandlerFunc(h.HandleActivate),
			AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			AuthnMiddleware(r.TokenService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{SessionService: r.SessionService}

	r.Mux.Handle("GET /v1/users/{userId}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			AuthnMiddleware(r.TokenService),
			RequireScope("user-{userId}:read-session-*"),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{userId}/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			AuthnMiddleware(r.TokenService),
			RequireScope("user-{userId}:delete-session-{id}"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{userId}/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeAll),
			AuthnMiddleware(r.TokenService),
			RequireScope("user-{userId}:delete-session-*"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAPIKeys() {
	h := &APIKeysHandler{APIKeyService: r.APIKeyService}

	r.Mux.Handle("POST /v1/users/{userId}/api-keys",
		httpx.Chain(http.HandlerFunc(h.HandleMint),
			AuthnMiddleware(r.TokenService),
			RequireScope("user-{userId}:write-api-key-*"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/users/{userId}/api-keys",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			AuthnMiddleware(r.TokenService),
			RequireScope("user-{userId}:read-api-key-*"),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/users/{userId}/api-keys/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			AuthnMiddleware(r.TokenService),
			RequireScope("user-{userId}:delete-api-key-{id}"),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
