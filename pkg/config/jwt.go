package config

import (
	"time"
)

// JWTConfig holds the admin API token settings. Tokens are HS256 signed.
type JWTConfig struct {
	Secret      string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	TokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"PT1H"`
	Issuer      string `env:"JWT_ISSUER" env-default:"simple-oxtrust"`
	Audience    string `env:"JWT_AUDIENCE" env-default:"simple-oxtrust"`
	AdminRoles  string `env:"OXTRUST_ADMIN_ROLES" env-default:"admin,superadmin"`
}

// ParseTokenExpiry parses the token expiry duration
func (j JWTConfig) ParseTokenExpiry() (time.Duration, error) {
	return ParseDuration(j.TokenExpiry)
}

// AdminRoleNames returns the roles allowed to use the admin API
func (j JWTConfig) AdminRoleNames() []string {
	return ParseAdminRoleNames(j.AdminRoles)
}

// NewJWTConfigFromEnv creates a JWTConfig from environment variables
func NewJWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		Secret:      GetEnvOrDefault("JWT_SECRET", "very-secure-jwt-secret"),
		TokenExpiry: GetEnvOrDefault("ACCESS_TOKEN_EXPIRY", "PT1H"),
		Issuer:      GetEnvOrDefault("JWT_ISSUER", "simple-oxtrust"),
		Audience:    GetEnvOrDefault("JWT_AUDIENCE", "simple-oxtrust"),
		AdminRoles:  GetEnvOrDefault("OXTRUST_ADMIN_ROLES", "admin,superadmin"),
	}
}

// Validate checks that tokens can be signed and expire
func (j JWTConfig) Validate() error {
	expiry, err := j.ParseTokenExpiry()
	if err != nil {
		return Validate(func() ValidationErrors {
			return ValidationErrors{{Field: "ACCESS_TOKEN_EXPIRY", Message: err.Error()}}
		})
	}
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("JWT_SECRET", j.Secret),
			RequirePositiveDuration("ACCESS_TOKEN_EXPIRY", expiry),
		)
	})
}
