package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/public/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestAuthRateLimitPreservesBody(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 2, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitEmailLimitIgnoresCase(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, EmailLimit: 2}
	handler := AuthRateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	for i, email := range []string{"blocked@example.com", "Blocked@Example.com", " blocked@example.com"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, fmt.Sprintf("10.0.0.%d", i+1)))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec.Body))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestAuthRateLimitIPLimitUsesForwardedFor(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "register", Window: time.Minute, IPLimit: 1}
	handler := AuthRateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := loginRequest("a@example.com", "9.9.9.9")
	first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusCreated, rec.Code)

	second := loginRequest("b@example.com", "8.8.8.8")
	second.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthRateLimitLimiterFailure(t *testing.T) {
	policy := AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 5}
	handler := AuthRateLimit(policy, &fakeLimiter{err: errors.New("redis down")}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
	AuthRateLimit(AuthRateLimitPolicy{Name: "login"}, newFakeLimiter(), nil)(next).ServeHTTP(httptest.NewRecorder(), loginRequest("a@example.com", "1.1.1.1"))
	AuthRateLimit(LoginRateLimit(config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1}), nil, nil)(next).ServeHTTP(httptest.NewRecorder(), loginRequest("a@example.com", "1.1.1.1"))
	assert.Equal(t, 2, calls)
}

func TestRateLimitPoliciesFromConfig(t *testing.T) {
	cfg := config.AuthRateLimitConfig{
		LoginWindow: time.Minute, LoginEmailLimit: 5, LoginIPLimit: 20,
		RegisterWindow: 5 * time.Minute, RegisterEmailLimit: 3, RegisterIPLimit: 10,
	}
	assert.Equal(t, AuthRateLimitPolicy{Name: "login", Window: time.Minute, IPLimit: 20, EmailLimit: 5}, LoginRateLimit(cfg))
	assert.Equal(t, AuthRateLimitPolicy{Name: "register", Window: 5 * time.Minute, IPLimit: 10, EmailLimit: 3}, RegisterRateLimit(cfg))
}
