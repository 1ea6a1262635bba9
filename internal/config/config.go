// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"parkhub/internal/service"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	TokenTTL    time.Duration
	CacheTTL    time.Duration
	Billing     service.BillingOptions
}

// Load reads .env when present and assembles the configuration.
// DATABASE_URL and JWT_SECRET are required; everything else has defaults.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        envOr("PORT", "8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenTTL:    envDuration("JWT_TOKEN_TTL", 2*time.Hour),
		CacheTTL:    envDuration("LOT_CACHE_TTL", 30*time.Second),
		Billing: service.BillingOptions{
			DailyRateMultiplier:      envFloat("BILLING_DAILY_RATE_MULTIPLIER", 18),
			MinimumBilledHours:       envFloat("BILLING_MINIMUM_BILLED_HOURS", 0.25),
			HourBoundaryForDailyRate: envFloat("BILLING_HOUR_BOUNDARY", 24),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
