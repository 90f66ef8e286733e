package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// CORSAllowedOrigins is a comma-separated allowlist; defaults to "*"
	// because the voice platform calls webhooks from rotating egress IPs.
	CORSAllowedOrigins []string

	// AdminJWTSecret protects the operator read endpoints. Empty disables them.
	AdminJWTSecret string

	// ToolCallDedupeTTL bounds how long a tool_call_id suppresses redelivery.
	ToolCallDedupeTTL time.Duration

	// Ops alerting for unresolvable workflow correlation keys.
	SendGridAPIKey  string
	AlertsFromEmail string
	AlertsFromName  string
	AlertsToEmail   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		ToolCallDedupeTTL:  getEnvAsDuration("TOOL_CALL_DEDUPE_TTL", 15*time.Minute),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		AlertsFromEmail:    getEnv("ALERTS_FROM_EMAIL", ""),
		AlertsFromName:     getEnv("ALERTS_FROM_NAME", "Booking Agent"),
		AlertsToEmail:      getEnv("ALERTS_TO_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
