package config

// ClientConfig contains OAuth client secret encryption settings.
type ClientConfig struct {
	// EncryptionKey is the passphrase the client secret key is derived from.
	EncryptionKey string `env:"OXTRUST_CLIENT_ENCRYPTION_KEY" env-default:""`
}

// NewClientConfigFromEnv loads ClientConfig from OXTRUST_CLIENT_ENCRYPTION_KEY.
func NewClientConfigFromEnv() ClientConfig {
	return ClientConfig{
		EncryptionKey: GetEnv("OXTRUST_CLIENT_ENCRYPTION_KEY"),
	}
}

// IsConfigured returns true if the encryption key is set
func (c ClientConfig) IsConfigured() bool {
	return c.EncryptionKey != ""
}
