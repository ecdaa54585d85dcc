package config

// OrganizationConfig identifies the organization whose subtree holds every
// managed entry, and the appliance this instance reports for
type OrganizationConfig struct {
	Inum          string `env:"OXTRUST_ORG_INUM" env-default:"@!1111"`
	BaseDN        string `env:"OXTRUST_BASE_DN" env-default:"o=gluu"`
	DisplayName   string `env:"OXTRUST_ORG_DISPLAY_NAME" env-default:"Gluu"`
	ApplianceInum string `env:"OXTRUST_APPLIANCE_INUM" env-default:"@!1111!0002"`
	// InumRetries bounds the attempts to find an unused inum
	InumRetries int `env:"OXTRUST_INUM_RETRIES" env-default:"100"`
}

// Validate checks the organization settings
func (o OrganizationConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("OXTRUST_ORG_INUM", o.Inum),
			RequireNonEmpty("OXTRUST_BASE_DN", o.BaseDN),
			RequireNonEmpty("OXTRUST_APPLIANCE_INUM", o.ApplianceInum),
			RequirePositive("OXTRUST_INUM_RETRIES", o.InumRetries),
		)
	})
}

// NewOrganizationConfigFromEnv creates an OrganizationConfig from environment variables
func NewOrganizationConfigFromEnv() OrganizationConfig {
	return OrganizationConfig{
		Inum:          GetEnvOrDefault("OXTRUST_ORG_INUM", "@!1111"),
		BaseDN:        GetEnvOrDefault("OXTRUST_BASE_DN", "o=gluu"),
		DisplayName:   GetEnvOrDefault("OXTRUST_ORG_DISPLAY_NAME", "Gluu"),
		ApplianceInum: GetEnvOrDefault("OXTRUST_APPLIANCE_INUM", "@!1111!0002"),
		InumRetries:   GetEnvInt("OXTRUST_INUM_RETRIES", 100),
	}
}
