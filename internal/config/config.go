package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay.
type Config struct {
	Port      string
	Env       string
	RedisURL  string
	NatsURL   string
	LedgerURL string

	// Relay tuning
	InboxDepth            int  // per-recipient offline buffer bound
	SendBuffer            int  // per-session outbound buffer
	RequireSignedRegister bool // demand wallet-key ownership proof on register

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		RedisURL:              os.Getenv("REDIS_URL"),
		NatsURL:               os.Getenv("NATS_URL"),
		LedgerURL:             os.Getenv("LEDGER_URL"),
		InboxDepth:            getEnvInt("RELAY_INBOX_DEPTH", 256),
		SendBuffer:            getEnvInt("RELAY_SEND_BUFFER", 32),
		RequireSignedRegister: getEnv("REQUIRE_SIGNED_REGISTER", "false") == "true",
		AutoBlockEnabled:      getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
