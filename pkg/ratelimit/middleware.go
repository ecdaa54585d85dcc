package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/simple-oxtrust/pkg/adminauth"
	oxerrors "github.com/tendant/simple-oxtrust/pkg/errors"
)

// Config holds the admin API rate limits
type Config struct {
	Enabled          bool          `env:"OXTRUST_RATELIMIT_ENABLED" env-default:"true"`
	PerIPPerMinute   int           `env:"OXTRUST_RATELIMIT_PER_IP" env-default:"300"`
	PerUserPerMinute int           `env:"OXTRUST_RATELIMIT_PER_USER" env-default:"600"`
	BucketTTL        time.Duration `env:"OXTRUST_RATELIMIT_BUCKET_TTL" env-default:"1h"`

	// Only enable behind a proxy that overwrites X-Forwarded-For.
	TrustProxyHeaders bool `env:"OXTRUST_RATELIMIT_TRUST_PROXY" env-default:"false"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		PerIPPerMinute:   300,
		PerUserPerMinute: 600,
		BucketTTL:        time.Hour,
	}
}

// Middleware limits requests per client IP and, once AdminUserMiddleware
// has run, per admin subject.
type Middleware struct {
	config Config
	ip     *KeyedLimiter
	user   *KeyedLimiter
}

func NewMiddleware(config Config) *Middleware {
	m := &Middleware{config: config}
	if config.PerIPPerMinute > 0 {
		m.ip = NewKeyedLimiter(config.PerIPPerMinute, config.BucketTTL)
	}
	if config.PerUserPerMinute > 0 {
		m.user = NewKeyedLimiter(config.PerUserPerMinute, config.BucketTTL)
	}
	return m
}

// ByIP limits by client address. Mount it before authentication.
func (m *Middleware) ByIP(next http.Handler) http.Handler {
	return m.handler(next, "ip", m.ip, func(r *http.Request) string {
		return ClientIP(r, m.config.TrustProxyHeaders)
	})
}

// ByUser limits by admin subject. Requests without an admin user pass.
func (m *Middleware) ByUser(next http.Handler) http.Handler {
	return m.handler(next, "user", m.user, func(r *http.Request) string {
		if u := adminauth.FromContext(r.Context()); u != nil {
			return u.Subject
		}
		return ""
	})
}

func (m *Middleware) handler(next http.Handler, kind string, limiter *KeyedLimiter, keyFn func(*http.Request) string) http.Handler {
	if !m.config.Enabled || limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyFn(r)
		if key != "" {
			w.Header().Set("X-RateLimit-Limit-"+strings.ToUpper(kind[:1])+kind[1:], strconv.Itoa(limiter.Burst()))
			if !limiter.Allow(key) {
				slog.Warn("Rate limit exceeded", "type", kind, "key", key, "method", r.Method, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				status, body := oxerrors.ToResponse(oxerrors.New(oxerrors.ErrCodeRateLimited, "too many requests").WithDetail("type", kind))
				render.Status(r, status)
				render.JSON(w, r, body)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RunSweeper drops idle buckets every interval until ctx is done.
func (m *Middleware) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, l := range []*KeyedLimiter{m.ip, m.user} {
				if l != nil {
					l.Sweep()
				}
			}
		}
	}
}

// ClientIP returns the host part of RemoteAddr. With trustProxy it prefers
// the first X-Forwarded-For hop, then X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
