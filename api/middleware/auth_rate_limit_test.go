package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/bookstall-backend/pkg/redis"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindow(_ context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error) {
	if f.err != nil {
		return pkgredis.Window{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return pkgredis.Window{Allowed: f.counts[scope] <= limit, Count: f.counts[scope], ResetIn: window}, nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimit_BodyStillReadableDownstream(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4:5678"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimit_EmailLimitIgnoresCaseAndIP(t *testing.T) {
	limiter := newFakeLimiter()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), limiter, nil)(okHandler())

	emails := []string{"blocked@example.com", "BLOCKED@example.com", " blocked@example.com"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))+":80"))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "60", rec.Header().Get("Retry-After"))

		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
	}

	require.Len(t, limiter.counts, 1)
	for scope := range limiter.counts {
		require.True(t, strings.HasPrefix(scope, "email:login:"))
		require.NotContains(t, scope, "blocked@example.com")
	}
}

func TestAuthRateLimit_IPLimitBlocksBeforeBodyIsRead(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 5), newFakeLimiter(), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "5.6.7.8:1234"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("b@example.com", "5.6.7.8:9999"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthRateLimit_LimiterFailureIsDependencyError(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), limiter, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	limiter := newFakeLimiter()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 1, 1), limiter, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Empty(t, limiter.counts)
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.0.2:4000"
	require.Equal(t, "192.168.0.2", clientIP(req))

	req.Header.Set("X-Real-IP", "8.8.4.4")
	require.Equal(t, "8.8.4.4", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 9.9.9.9 , 10.0.0.1")
	require.Equal(t, "9.9.9.9", clientIP(req))
}

func TestAuthRateLimit_RedisCountersExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := pkgredis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 0), client, nil)(okHandler())

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"x"}`))
		req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusTooManyRequests, send())

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusOK, send())
}
