package config

import (
	"os"
	"strconv"
	"time"

	"signal_server/core/domain"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage
	RedisURL    string
	DatabaseURL string

	// Remote authority
	AuthorityURL        string
	AuthorityTimeoutSec int
	JWTSecret           string

	// Badge state store
	BadgeTTL        time.Duration
	BadgeMaxEntries int
	BadgeDebounce   time.Duration

	// Hybrid settings store
	EntitlementTTL time.Duration
	BlocklistTTL   time.Duration

	// Free-tier quotas
	FreeExcludeKeywords  int
	FreeExcludeCompanies int
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Storage
		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Remote authority
		AuthorityURL:        getEnv("AUTHORITY_URL", ""),
		AuthorityTimeoutSec: getEnvInt("AUTHORITY_TIMEOUT_SEC", 5),
		JWTSecret:           getEnv("JWT_SECRET", ""),

		// Badge state store
		BadgeTTL:        time.Duration(getEnvInt("BADGE_TTL_HOURS", 24)) * time.Hour,
		BadgeMaxEntries: getEnvInt("BADGE_MAX_ENTRIES", 500),
		BadgeDebounce:   time.Duration(getEnvInt("BADGE_DEBOUNCE_MS", 500)) * time.Millisecond,

		// Hybrid settings store
		EntitlementTTL: time.Duration(getEnvInt("ENTITLEMENT_TTL_MIN", 5)) * time.Minute,
		BlocklistTTL:   time.Duration(getEnvInt("BLOCKLIST_TTL_MIN", 60)) * time.Minute,

		// Free-tier quotas
		FreeExcludeKeywords:  getEnvInt("FREE_EXCLUDE_KEYWORDS", 3),
		FreeExcludeCompanies: getEnvInt("FREE_EXCLUDE_COMPANIES", 1),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// FreeTierLimits returns the configured free-tier list quotas.
func (c *Config) FreeTierLimits() domain.FreeTierLimits {
	return domain.FreeTierLimits{
		ExcludeKeywords:  c.FreeExcludeKeywords,
		ExcludeCompanies: c.FreeExcludeCompanies,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
