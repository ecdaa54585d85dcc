package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT5M", 5 * time.Minute},
		{"PT1H30M", 90 * time.Minute},
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDuration("soon")
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("OXTRUST_TEST_BOOL", "YES")
	t.Setenv("OXTRUST_TEST_INT", "notanint")
	t.Setenv("OXTRUST_TEST_SLICE", " a, ,b ")
	t.Setenv("OXTRUST_TEST_DURATION", "PT30S")

	assert.True(t, GetEnvBool("OXTRUST_TEST_BOOL", false))
	assert.Equal(t, 7, GetEnvInt("OXTRUST_TEST_INT", 7))
	assert.Equal(t, []string{"a", "b"}, GetEnvSlice("OXTRUST_TEST_SLICE", nil))
	assert.Equal(t, 30*time.Second, GetEnvDuration("OXTRUST_TEST_DURATION", time.Minute))
	assert.Equal(t, "fallback", GetEnvOrDefault("OXTRUST_TEST_UNSET", "fallback"))
}

func TestStoreConfig_Validate(t *testing.T) {
	assert.NoError(t, StoreConfig{Type: "inmem"}.Validate())
	assert.NoError(t, StoreConfig{Type: "file", DataDir: "/tmp/x"}.Validate())

	err := StoreConfig{Type: "ldap"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OXTRUST_STORE_TYPE")

	err = StoreConfig{Type: "sqlite"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OXTRUST_STORE_SQLITE_PATH")
}

func TestCacheConfig(t *testing.T) {
	cfg := CacheConfig{Provider: "REDIS", DefaultTTL: "PT10M"}
	assert.Equal(t, 10*time.Minute, cfg.TTL())
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OXTRUST_REDIS_ADDR")

	cfg = CacheConfig{Provider: "IN_MEMORY", DefaultTTL: "bogus"}
	assert.Equal(t, 5*time.Minute, cfg.TTL())
	assert.NoError(t, cfg.Validate())
}

func TestOrganizationConfig_Validate(t *testing.T) {
	cfg := NewOrganizationConfigFromEnv()
	assert.NoError(t, cfg.Validate())

	cfg.InumRetries = 0
	assert.Error(t, cfg.Validate())
}

func TestJWTConfig(t *testing.T) {
	cfg := NewJWTConfigFromEnv()
	require.NoError(t, cfg.Validate())
	expiry, err := cfg.ParseTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, expiry)
	assert.Equal(t, []string{"admin", "superadmin"}, cfg.AdminRoleNames())

	assert.True(t, HasAnyAdminRole([]string{"viewer", "ADMIN"}, cfg.AdminRoleNames()))
	assert.False(t, HasAnyAdminRole([]string{"viewer"}, cfg.AdminRoleNames()))

	cfg.TokenExpiry = "never"
	assert.Error(t, cfg.Validate())
}

func TestAdminRoles(t *testing.T) {
	assert.Equal(t, []string{"admin", "superadmin"}, ParseAdminRoleNames(" , "))
	assert.Equal(t, []string{"ops", "root"}, ParseAdminRoleNames("ops, root"))
	assert.False(t, HasAnyAdminRole(nil, DefaultAdminRoles))
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("OXTRUST_ENV", "PROD")
	assert.True(t, IsProduction())
	t.Setenv("OXTRUST_ENV", "")
	assert.Equal(t, Development, GetEnvironment())
}
