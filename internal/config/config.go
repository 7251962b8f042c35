// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Auth
	JWTSecret      string
	TokenTTLHours  int
	BootstrapEmail string // initial super admin (created on first start)
	BootstrapPass  string

	// Payments
	StripeSecretKey      string // enables the Stripe payout provider when set
	ProviderWebhookToken string // shared token the payout provider sends on webhooks
	DefaultCurrency      string

	// Observability
	OTLPEndpoint string
	RateLimitRPM int
}

// Defaults.
const (
	DefaultPort     = "8080"
	DefaultEnv      = "development"
	DefaultLogLevel = "info"
	DefaultLogFmt   = "text"
	DefaultTokenTTL = 24
	DefaultCurrency = "USD"
	DefaultRPM      = 300
)

// Load reads configuration from environment variables. A .env file is
// loaded first when present (local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:            getEnv("LOG_FORMAT", DefaultLogFmt),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		TokenTTLHours:        getEnvInt("TOKEN_TTL_HOURS", DefaultTokenTTL),
		BootstrapEmail:       getEnv("BOOTSTRAP_ADMIN_EMAIL", "root@casino.local"),
		BootstrapPass:        os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		ProviderWebhookToken: os.Getenv("PROVIDER_WEBHOOK_TOKEN"),
		DefaultCurrency:      getEnv("DEFAULT_CURRENCY", DefaultCurrency),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RateLimitRPM:         getEnvInt("RATE_LIMIT_RPM", DefaultRPM),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		// Deterministic dev secret so local tokens survive restarts.
		c.JWTSecret = "dev-only-secret-do-not-use-in-production"
	}
	if c.IsProduction() && c.BootstrapPass == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required in production")
	}
	if c.TokenTTLHours <= 0 {
		c.TokenTTLHours = DefaultTokenTTL
	}
	return nil
}

// IsDevelopment returns true when running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
