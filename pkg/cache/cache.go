package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheUnavailable indicates the cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue indicates the cached value cannot be decoded
	ErrInvalidValue = errors.New("cache: invalid value")
)

// ProviderType names a cache backend.
type ProviderType string

const (
	ProviderInMemory ProviderType = "IN_MEMORY"
	ProviderRedis    ProviderType = "REDIS"
)

// DefaultTTL is used when a configuration carries no TTL.
const DefaultTTL = 5 * time.Minute

// Config selects and parameterizes a cache backend.
type Config struct {
	Provider      ProviderType `json:"cacheProviderType,omitempty"`
	RedisAddress  string       `json:"redisAddress,omitempty"`
	RedisPassword string       `json:"redisPassword,omitempty"`
	RedisDB       int          `json:"redisDB,omitempty"`
	DefaultTTL    Duration     `json:"defaultTTL,omitempty"`
}

// TTL returns the configured default TTL or DefaultTTL.
func (c Config) TTL() time.Duration {
	if c.DefaultTTL <= 0 {
		return DefaultTTL
	}
	return time.Duration(c.DefaultTTL)
}

// Duration is a time.Duration encoded as a Go duration string in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Cache defines the primitive operations for a key-value cache.
type Cache[T any] interface {
	// Get returns ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a single value in cache with TTL
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error

	// Health checks if the cache is healthy
	Health(ctx context.Context) error
}

// GetWithFetch is a cache-aside helper. On a miss it calls fetchFunc,
// stores the result and returns it. Cache write failures are logged only.
func GetWithFetch[T any](
	ctx context.Context,
	c Cache[T],
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		slog.Warn("cache read failed, falling back to fetch", "key", key, "err", err)
	}

	value, err := fetchFunc(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("cache write failed", "key", key, "err", err)
	}
	return value, nil
}

// New builds the cache selected by cfg. Unknown providers are an error;
// callers resolve defaults before calling New.
func New[T any](ctx context.Context, cfg Config) (Cache[T], error) {
	switch cfg.Provider {
	case ProviderInMemory, "":
		return NewMemoryCache[T](), nil
	case ProviderRedis:
		c, err := NewRedisCache[T](ctx, RedisOptions{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache provider %q", cfg.Provider)
	}
}
