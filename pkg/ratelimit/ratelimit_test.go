package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oxtrust/pkg/adminauth"
)

func TestKeyedLimiter(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewKeyedLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have separate buckets")

	// two per minute refills one and a half tokens in 45s
	now = now.Add(45 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.Equal(t, 2, l.Len())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r, true))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIP(r, true))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "203.0.113.7", ClientIP(r, true))

	assert.Equal(t, "10.0.0.1", ClientIP(r, false), "headers ignored without a trusted proxy")
}

func TestMiddleware_ByIPIgnoresSpoofedForwardedFor(t *testing.T) {
	m := NewMiddleware(Config{Enabled: true, PerIPPerMinute: 1, BucketTTL: time.Hour})
	h := m.ByIP(okHandler())

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.9:4000"
		r.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)

	trusted := NewMiddleware(Config{Enabled: true, PerIPPerMinute: 1, BucketTTL: time.Hour, TrustProxyHeaders: true})
	h = trusted.ByIP(okHandler())
	for _, forwarded := range []string{"198.51.100.1", "198.51.100.2"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.9:4000"
		r.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code, forwarded)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ByIP(t *testing.T) {
	m := NewMiddleware(Config{Enabled: true, PerIPPerMinute: 1, BucketTTL: time.Hour})
	h := m.ByIP(okHandler())

	do := func(addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/scopes", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	first := do("192.0.2.1:1000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit-Ip"))

	second := do("192.0.2.1:1001")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"code":"RATE_LIMITED"`)

	assert.Equal(t, http.StatusOK, do("192.0.2.2:1000").Code)
}

func TestMiddleware_ByUser(t *testing.T) {
	m := NewMiddleware(Config{Enabled: true, PerUserPerMinute: 1, BucketTTL: time.Hour})
	h := m.ByUser(okHandler())

	do := func(user *adminauth.AdminUser) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), adminauth.AdminUserKey, user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	alice := &adminauth.AdminUser{Subject: "alice"}
	assert.Equal(t, http.StatusOK, do(alice))
	assert.Equal(t, http.StatusTooManyRequests, do(alice))
	assert.Equal(t, http.StatusOK, do(&adminauth.AdminUser{Subject: "bob"}))

	// anonymous requests are left to the authenticator
	assert.Equal(t, http.StatusOK, do(nil))
	assert.Equal(t, http.StatusOK, do(nil))
}

func TestMiddleware_Disabled(t *testing.T) {
	m := NewMiddleware(Config{Enabled: false, PerIPPerMinute: 1})
	h := m.ByIP(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
