package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// GetEnv returns the value of key, or "" when unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvOrDefault returns the value of key, or def when unset or empty.
func GetEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// GetEnvInt returns key parsed as an int. Unparseable values yield def.
func GetEnvInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

func GetEnvUint16(key string, def uint16) uint16 {
	n, err := strconv.ParseUint(strings.TrimSpace(os.Getenv(key)), 10, 16)
	if err != nil {
		return def
	}
	return uint16(n)
}

// GetEnvBool accepts true/1/yes/on and false/0/no/off in any case.
func GetEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// GetEnvDuration reads key with ParseDuration.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// ParseDuration accepts ISO 8601 durations ("PT5M") as stored in appliance
// entries, and Go durations ("5m").
func ParseDuration(s string) (time.Duration, error) {
	if iso, err := duration.Parse(s); err == nil {
		return iso.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}

// GetEnvSlice splits a comma separated value. An unset or blank value
// yields def.
func GetEnvSlice(key string, def []string) []string {
	parts := SplitAndTrim(os.Getenv(key), ",")
	if len(parts) == 0 {
		return def
	}
	return parts
}

// SplitAndTrim splits s on sep and drops blank parts.
func SplitAndTrim(s, sep string) []string {
	var parts []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Environment is the deployment environment named by OXTRUST_ENV.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

func GetEnvironment() Environment {
	switch strings.ToLower(GetEnv("OXTRUST_ENV")) {
	case "production", "prod":
		return Production
	case "test", "testing":
		return Test
	default:
		return Development
	}
}

func IsProduction() bool {
	return GetEnvironment() == Production
}
