// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string

	SupabaseURL        string
	SupabaseServiceKey string

	JWTSecret string
	JWTExpiry time.Duration

	APIKey string

	RateLimitPerSecond int
	RateLimitBurst     int

	AllowedOrigins []string
}

// Load reads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               envInt("PORT", 9000),
		Environment:        envOr("ENVIRONMENT", "development"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		LogFormat:          envOr("LOG_FORMAT", "json"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		APIKey:             os.Getenv("API_KEY"),
		RateLimitPerSecond: envInt("RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:     envInt("RATE_LIMIT_BURST", 40),
	}

	expiry := envOr("JWT_EXPIRY", "2160h") // 90 days
	parsed, err := time.ParseDuration(expiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT_EXPIRY: %w", err)
	}
	cfg.JWTExpiry = parsed

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}

	if !cfg.IsDevelopment() {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API_KEY is required outside development")
		}
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required outside development")
		}
	}

	// Development fallbacks so the gateway can run against the memory store.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "dev-api-key"
	}

	return cfg, nil
}

// IsDevelopment reports whether the gateway runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "testing"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
