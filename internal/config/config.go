// Package config handles loading application configuration from environment variables
// and the runtime-editable settings persisted to a JSON file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the process-wide settings resolved once at startup.
// Runtime-editable integration settings live in Settings instead.
type Config struct {
	Port               string
	ConfigDir          string
	DatabasePath       string
	SettingsPath       string
	JWTSecret          string
	TokenDuration      time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string

	SuperadminUsername string
	SuperadminPassword string
	SuperadminReset    bool

	AppName    string
	AppVersion string
	AppURL     string
}

// ErrMissingJWTSecret is returned when JWT_SECRET is not set. It is the only
// fatal configuration condition: everything else has a usable default.
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is required")

// Load reads configuration from environment variables, using defaults where not set.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, ErrMissingJWTSecret
	}

	configDir := getEnv("CONFIG_DIR", "./config")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		ConfigDir:          configDir,
		DatabasePath:       getEnv("DATABASE_PATH", filepath.Join(configDir, "resonarr.db")),
		SettingsPath:       getEnv("SETTINGS_PATH", filepath.Join(configDir, "settings.json")),
		JWTSecret:          secret,
		TokenDuration:      getDurationEnv("TOKEN_DURATION", 7*24*time.Hour),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 10),
		CORSAllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS"),
		TrustedProxies:     getStringSliceEnv("TRUSTED_PROXIES"),

		SuperadminUsername: getEnv("SUPERADMIN_USERNAME", "admin"),
		SuperadminPassword: getEnv("SUPERADMIN_PASSWORD", ""),
		SuperadminReset:    getBoolEnv("SUPERADMIN_RESET", false),

		AppName:    "Resonarr",
		AppVersion: getEnv("RELEASE_VERSION", "dev"),
		AppURL:     getEnv("APP_URL", "https://github.com/resonarr/resonarr"),
	}, nil
}

func getStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
