package config

import "time"

// CacheConfig is the fallback cache configuration used when the appliance
// entry carries none
type CacheConfig struct {
	Provider      string `env:"OXTRUST_CACHE_PROVIDER" env-default:"IN_MEMORY"`
	RedisAddress  string `env:"OXTRUST_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"OXTRUST_REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"OXTRUST_REDIS_DB" env-default:"0"`
	DefaultTTL    string `env:"OXTRUST_CACHE_TTL" env-default:"PT5M"`
}

// TTL parses DefaultTTL, returning 5 minutes when it is invalid
func (c CacheConfig) TTL() time.Duration {
	d, err := ParseDuration(c.DefaultTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// NewCacheConfigFromEnv creates a CacheConfig from environment variables
func NewCacheConfigFromEnv() CacheConfig {
	return CacheConfig{
		Provider:      GetEnvOrDefault("OXTRUST_CACHE_PROVIDER", "IN_MEMORY"),
		RedisAddress:  GetEnvOrDefault("OXTRUST_REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnv("OXTRUST_REDIS_PASSWORD"),
		RedisDB:       GetEnvInt("OXTRUST_REDIS_DB", 0),
		DefaultTTL:    GetEnvOrDefault("OXTRUST_CACHE_TTL", "PT5M"),
	}
}

// Validate checks the provider and its connection settings
func (c CacheConfig) Validate() error {
	return Validate(func() ValidationErrors {
		errs := CollectErrors(
			RequireOneOf("OXTRUST_CACHE_PROVIDER", c.Provider, []string{"IN_MEMORY", "REDIS"}),
			RequirePositiveDuration("OXTRUST_CACHE_TTL", c.TTL()),
		)
		if c.Provider == "REDIS" {
			errs = append(errs, CollectErrors(RequireNonEmpty("OXTRUST_REDIS_ADDR", c.RedisAddress))...)
		}
		return errs
	})
}
