package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type org struct {
	Inum        string `json:"inum"`
	DisplayName string `json:"displayName"`
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache[int64]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 42, time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "short", 1, 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Health(ctx))
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedisCache[org](ctx, RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	want := org{Inum: "1234", DisplayName: "Acme"}
	require.NoError(t, c.Set(ctx, "organization", want, time.Minute))
	assert.True(t, mr.Exists("oxtrust:organization"))

	got, err := c.Get(ctx, "organization")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "organization")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mr.Set("oxtrust:broken", "{nope"))
	_, err = c.Get(ctx, "broken")
	assert.ErrorIs(t, err, ErrInvalidValue)

	assert.NoError(t, c.Health(ctx))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache[org](context.Background(), RedisOptions{Addr: "127.0.0.1:1", ConnTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestGetWithFetch(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()
	calls := 0
	fetch := func(ctx context.Context, key string) (string, error) {
		calls++
		return "value-" + key, nil
	}

	v, err := GetWithFetch[string](ctx, c, "a", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "value-a", v)

	v, err = GetWithFetch[string](ctx, c, "a", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "value-a", v)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = GetWithFetch[string](ctx, c, "b", time.Minute, func(ctx context.Context, key string) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New[string](ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache[string]{}, c)

	mr := miniredis.RunT(t)
	c, err = New[string](ctx, Config{Provider: ProviderRedis, RedisAddress: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache[string]{}, c)
	c.Close()

	_, err = New[string](ctx, Config{Provider: "MEMCACHED"})
	assert.Error(t, err)
}

func TestConfigJSON(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"cacheProviderType":"REDIS","redisAddress":"localhost:6379","defaultTTL":"30s"}`), &cfg))
	assert.Equal(t, ProviderRedis, cfg.Provider)
	assert.Equal(t, 30*time.Second, cfg.TTL())
	assert.Equal(t, DefaultTTL, Config{}.TTL())
}
