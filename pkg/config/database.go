package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL connection settings for the postgres
// entry store
type DatabaseConfig struct {
	Host     string `env:"OXTRUST_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"OXTRUST_PG_PORT" env-default:"5432"`
	Database string `env:"OXTRUST_PG_DATABASE" env-default:"oxtrust_db"`
	User     string `env:"OXTRUST_PG_USER" env-default:"oxtrust"`
	Password string `env:"OXTRUST_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"OXTRUST_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// Validate checks the connection settings
func (d DatabaseConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("OXTRUST_PG_HOST", d.Host),
			RequireValidPort("OXTRUST_PG_PORT", d.Port),
			RequireNonEmpty("OXTRUST_PG_DATABASE", d.Database),
			RequireNonEmpty("OXTRUST_PG_USER", d.User),
		)
	})
}

// NewDatabaseConfigFromEnv creates a DatabaseConfig from environment variables
func NewDatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     GetEnvOrDefault("OXTRUST_PG_HOST", "localhost"),
		Port:     GetEnvUint16("OXTRUST_PG_PORT", 5432),
		Database: GetEnvOrDefault("OXTRUST_PG_DATABASE", "oxtrust_db"),
		User:     GetEnvOrDefault("OXTRUST_PG_USER", "oxtrust"),
		Password: GetEnvOrDefault("OXTRUST_PG_PASSWORD", "pwd"),
		Schema:   GetEnvOrDefault("OXTRUST_PG_SCHEMA", "public"),
	}
}
