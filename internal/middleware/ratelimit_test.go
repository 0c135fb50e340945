package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, maxReqs, windowSec int) http.Handler {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	rl := NewRateLimiter(client, maxReqs, windowSec)
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = ip + ":51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	handler := setupLimiter(t, 3, 60)

	for i := 0; i < 3; i++ {
		rec := doRequest(handler, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimiter_DeniesOverLimit(t *testing.T) {
	handler := setupLimiter(t, 3, 60)

	for i := 0; i < 3; i++ {
		doRequest(handler, "10.0.0.1")
	}

	rec := doRequest(handler, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_IPsAreIndependent(t *testing.T) {
	handler := setupLimiter(t, 2, 60)

	doRequest(handler, "10.0.0.1")
	doRequest(handler, "10.0.0.1")
	rec := doRequest(handler, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(handler, "10.0.0.2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_UsesForwardedFor(t *testing.T) {
	handler := setupLimiter(t, 1, 60)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
