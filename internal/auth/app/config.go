package app

import (
	"os"
	"strconv"
	"time"

	"github.com/lanternhq/lantern/pkg/jwtx"
)

type Config struct {
	Issuer       string // Required: issuer claim for tokens
	DatabaseFile string // Optional: path to SQLite database file (default: ./lantern.db)
	NumKeys      int    // Optional: number of signing keys to generate (default: 1, max: 5)
	TOTPIssuer   string // Optional: issuer label shown in authenticator apps (default: Issuer)

	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh token lifetime (default: 7d)
	MFATokenTTL     time.Duration // MFA challenge lifetime (default: 10m)
	APIKeyTTL       time.Duration // API key lifetime (default: 365d)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "lantern-auth"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "lantern.db"),
		NumKeys:      getEnvIntOrDefault("AUTH_NUM_KEYS", 1),
		TOTPIssuer:   os.Getenv("AUTH_TOTP_ISSUER"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		MFATokenTTL:     getEnvDurationOrDefault("AUTH_MFA_TOKEN_TTL", 10*time.Minute),
		APIKeyTTL:       getEnvDurationOrDefault("AUTH_API_KEY_TTL", 365*24*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if cfg.TOTPIssuer == "" {
		cfg.TOTPIssuer = cfg.Issuer
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
