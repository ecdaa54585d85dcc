// Package config provides configuration loading and validation for simple-oxtrust.
//
// Every sub-configuration can be populated two ways: through cleanenv struct
// tags (env, env-default) when the whole server config is read at startup,
// or through the matching NewXxxConfigFromEnv helper.
//
// # Environment Variable Helpers
//
//	host := config.GetEnvOrDefault("OXTRUST_PG_HOST", "localhost")
//	retries := config.GetEnvInt("OXTRUST_INUM_RETRIES", 100)
//	metrics := config.GetEnvBool("OXTRUST_STORE_METRICS", true)
//
// Durations accept ISO8601 and Go syntax alike:
//
//	ttl := config.GetEnvDuration("OXTRUST_CACHE_TTL", 5*time.Minute) // "PT5M" or "5m"
//
// # Sub-configurations
//
//   - DatabaseConfig: PostgreSQL connection for the postgres entry store
//   - StoreConfig: entry store backend (inmem, file, postgres, sqlite)
//   - OrganizationConfig: organization inum, base DN and appliance inum
//   - ClientConfig: client secret encryption key
//   - CacheConfig: fallback cache provider when the appliance has none
//   - JWTConfig: admin API token secret, expiry and admin roles
//
// # Validation
//
//	func (s StoreConfig) Validate() error {
//		return config.Validate(func() config.ValidationErrors {
//			return config.CollectErrors(
//				config.RequireOneOf("OXTRUST_STORE_TYPE", s.Type, config.StoreTypes),
//			)
//		})
//	}
package config
