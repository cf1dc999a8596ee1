package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crudserver/internal/pkg/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestWithRequestID(t *testing.T) {
	t.Run("generates a v7 id", func(t *testing.T) {
		var seen string
		h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFrom(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id, err := uuid.FromString(rec.Header().Get(requestIDHeader))
		require.NoError(t, err)
		assert.Equal(t, byte(uuid.V7), id.Version())
		assert.Equal(t, id.String(), seen)
	})

	t.Run("keeps an incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, "abc-123")

		rec := httptest.NewRecorder()
		WithRequestID(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
	})
}

func TestRequireURLParams(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireURLParams("id")).Get("/things/{id}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/%20", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'id'")
}

func TestWithRecover(t *testing.T) {
	h := WithRecover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestWithCORS(t *testing.T) {
	testCases := map[string]struct {
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		"listed origin": {
			allowed:    []string{"http://app.test/"},
			origin:     "http://app.test",
			method:     http.MethodGet,
			wantOrigin: "http://app.test",
			wantStatus: http.StatusOK,
		},
		"wildcard": {
			allowed:    []string{"*"},
			origin:     "http://other.test",
			method:     http.MethodGet,
			wantOrigin: "http://other.test",
			wantStatus: http.StatusOK,
		},
		"unlisted origin": {
			allowed:    []string{"http://app.test"},
			origin:     "http://evil.test",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		"preflight": {
			allowed:    []string{"*"},
			origin:     "http://app.test",
			method:     http.MethodOptions,
			wantOrigin: "http://app.test",
			wantStatus: http.StatusNoContent,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/users", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}

			rec := httptest.NewRecorder()
			WithCORS(tc.allowed)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestWithSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	WithSecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	WithSecurityHeaders(okHandler).ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestWithRateLimit(t *testing.T) {
	h := WithRateLimit(RateLimitConfig{
		Limiter:   ratelimit.NewMemoryLimiter(2, time.Minute),
		Whitelist: []string{"/health"},
	})(okHandler)

	hit := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("/users", "10.0.0.1").Code)

	rec := hit("/users", "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = hit("/users", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other clients and whitelisted paths are unaffected
	assert.Equal(t, http.StatusOK, hit("/users", "10.0.0.2").Code)
	assert.Equal(t, http.StatusOK, hit("/health", "10.0.0.1").Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

func TestWithRateLimitFailsOpen(t *testing.T) {
	rec := httptest.NewRecorder()
	WithRateLimit(RateLimitConfig{Limiter: brokenLimiter{}})(okHandler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	assert.Equal(t, "192.0.2.10", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
