// Package wampums provides the client for the Wampums platform REST API.
package wampums

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for Wampums API access.
type Config struct {
	// BaseURL is the Wampums platform base URL
	BaseURL string

	// Token is an optional pre-provisioned access token; normally the
	// station obtains one at login
	Token string

	// OrganizationID identifies the troop's organization on the platform
	OrganizationID int64

	// Timeout for API requests
	Timeout time.Duration
}

// DefaultConfig returns the default configuration, reading from environment variables.
func DefaultConfig() Config {
	return Config{
		BaseURL:        getEnv("WAMPUMS_URL", "https://wampums.app"),
		Token:          getEnv("WAMPUMS_TOKEN", ""),
		OrganizationID: getEnvInt64("WAMPUMS_ORG_ID", 0),
		Timeout:        30 * time.Second,
	}
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 returns an environment variable parsed as int64 or a default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
