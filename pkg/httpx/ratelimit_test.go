package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lanternhq/lantern/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP when X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extractor := httpx.JSONFieldKeyExtractor("email")

	t.Run("from JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/",
			strings.NewReader(`{"email":"Bob@Example.com","password":"hunter2"}`))
		require.Equal(t, "bob@example.com", extractor(req))
	})

	t.Run("body is restored for the handler", func(t *testing.T) {
		body := `{"email":"alice@example.com","password":"hunter2"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		require.Equal(t, "alice@example.com", extractor(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"x"}`))
		require.Equal(t, "", extractor(req))
	})

	t.Run("not JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=alice"))
		require.Equal(t, "", extractor(req))
	})

	t.Run("no body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.Equal(t, "", extractor(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extractor := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.JSONFieldKeyExtractor("email"),
	)

	t.Run("combines parts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/",
			strings.NewReader(`{"email":"alice@example.com"}`))
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1:alice@example.com", extractor(req))
	})

	t.Run("skips empty parts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", extractor(req))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests over the limit", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		limited := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

		for i := range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		limited := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

		req1 := httptest.NewRequest(http.MethodGet, "/", nil)
		req1.RemoteAddr = "192.168.1.1:12345"
		rec1 := httptest.NewRecorder()
		limited.ServeHTTP(rec1, req1)
		require.Equal(t, http.StatusOK, rec1.Code)

		rec1b := httptest.NewRecorder()
		limited.ServeHTTP(rec1b, req1)
		require.Equal(t, http.StatusTooManyRequests, rec1b.Code)

		req2 := httptest.NewRequest(http.MethodGet, "/", nil)
		req2.RemoteAddr = "192.168.1.2:12345"
		rec2 := httptest.NewRecorder()
		limited.ServeHTTP(rec2, req2)
		require.Equal(t, http.StatusOK, rec2.Code)
	})

	t.Run("empty key allows the request", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		empty := func(*http.Request) string { return "" }
		limited := httpx.RateLimitMiddleware(config, empty)(okHandler())

		for range 3 {
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	limited := httpx.RateLimitByIPAndJSONField(config, "email")(okHandler())

	post := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/",
			strings.NewReader(`{"email":"`+email+`","password":"x"}`))
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec
	}

	for range 2 {
		require.Equal(t, http.StatusOK, post("alice@example.com").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, post("alice@example.com").Code)

	// Same IP, different account: separate bucket.
	require.Equal(t, http.StatusOK, post("bob@example.com").Code)
}

func TestRateLimitProfiles(t *testing.T) {
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}
