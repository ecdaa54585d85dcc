package config

// StoreConfig selects the entry store backend
type StoreConfig struct {
	// Type is one of inmem, file, postgres, sqlite
	Type       string `env:"OXTRUST_STORE_TYPE" env-default:"inmem"`
	DataDir    string `env:"OXTRUST_STORE_DATA_DIR" env-default:"./data"`
	SQLitePath string `env:"OXTRUST_STORE_SQLITE_PATH" env-default:"./data/oxtrust.db"`
	Metrics    bool   `env:"OXTRUST_STORE_METRICS" env-default:"true"`
}

// StoreTypes lists the supported values of StoreConfig.Type
var StoreTypes = []string{"inmem", "file", "postgres", "sqlite"}

// Validate checks that the store type is known and has what it needs
func (s StoreConfig) Validate() error {
	return Validate(func() ValidationErrors {
		errs := CollectErrors(RequireOneOf("OXTRUST_STORE_TYPE", s.Type, StoreTypes))
		switch s.Type {
		case "file":
			errs = append(errs, CollectErrors(RequireNonEmpty("OXTRUST_STORE_DATA_DIR", s.DataDir))...)
		case "sqlite":
			errs = append(errs, CollectErrors(RequireNonEmpty("OXTRUST_STORE_SQLITE_PATH", s.SQLitePath))...)
		}
		return errs
	})
}

// NewStoreConfigFromEnv creates a StoreConfig from environment variables
func NewStoreConfigFromEnv() StoreConfig {
	return StoreConfig{
		Type:       GetEnvOrDefault("OXTRUST_STORE_TYPE", "inmem"),
		DataDir:    GetEnvOrDefault("OXTRUST_STORE_DATA_DIR", "./data"),
		SQLitePath: GetEnvOrDefault("OXTRUST_STORE_SQLITE_PATH", "./data/oxtrust.db"),
		Metrics:    GetEnvBool("OXTRUST_STORE_METRICS", true),
	}
}
