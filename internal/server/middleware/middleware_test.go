package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	h := Auth("")(okHandler)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthAcceptsBearerAndAPIKeyHeaders(t *testing.T) {
	t.Parallel()

	h := Auth("sekrit")(okHandler)

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"bearer ok", "Authorization", "Bearer sekrit", http.StatusOK},
		{"bearer case-insensitive scheme", "Authorization", "bearer sekrit", http.StatusOK},
		{"bearer wrong", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bare token without scheme", "Authorization", "sekrit", http.StatusUnauthorized},
		{"api key ok", "X-API-Key", "sekrit", http.StatusOK},
		{"api key wrong", "X-API-Key", "nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"https://app.example"})(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSUnknownOriginGetsNoHeader(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"https://app.example"})(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// stubLimiter counts requests against a fixed allowance.
type stubLimiter struct {
	remaining int
	err       error
	lastKey   string
}

func (l *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.lastKey = key
	if l.err != nil {
		return false, l.err
	}
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}

func TestRateLimitBlocksWhenExhausted(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{remaining: 2}
	h := RateLimit(limiter, 2, time.Minute)(okHandler)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{err: errors.New("redis down")}
	h := RateLimit(limiter, 1, time.Minute)(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientIPPrefersForwardedHeaders(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:4567"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	assert.Equal(t, "198.51.100.2", clientIP(r))
}
