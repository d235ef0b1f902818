// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Scoring service
	ScoringURL     string // Automated compliance scoring endpoint (optional, heuristic scorer if not set)
	ScoringTimeout int    // Seconds to wait for a score before giving up

	// Observability
	OTLPEndpoint string // OTLP/gRPC collector address (optional, tracing disabled if not set)

	// Security
	WebhookSecret string // HMAC key for outbound webhook signatures
	AdminSecret   string // Admin API secret
	RateLimitRPS  int

	// Workload settings
	OverdueDays int // Days before an active assignment counts as overdue when no due date is set
}

const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultRateLimit      = 100
	DefaultScoringTimeout = 10
	DefaultOverdueDays    = 7
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:    os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ScoringURL:     os.Getenv("SCORING_URL"),
		ScoringTimeout: int(getEnvInt64("SCORING_TIMEOUT_SECONDS", DefaultScoringTimeout)),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		AdminSecret:    os.Getenv("ADMIN_SECRET"),
		RateLimitRPS:   int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		OverdueDays:    int(getEnvInt64("OVERDUE_DAYS", DefaultOverdueDays)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.ScoringURL != "" {
		u, err := url.Parse(c.ScoringURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("SCORING_URL must be an http(s) URL")
		}
	}

	if c.ScoringTimeout <= 0 {
		return fmt.Errorf("SCORING_TIMEOUT_SECONDS must be positive")
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}

	if c.IsProduction() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
