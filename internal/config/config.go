// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port             string
	FrontendURL      string
	DBPath           string
	KeywordRulesPath string
	Generation       GenerationConfig
	RateLimit        RateLimitConfig
	Channel          ChannelConfig
	Digest           DigestConfig
}

// GenerationConfig controls the simulated reply-generation latency.
type GenerationConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// RateLimitConfig throttles chat requests per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ChannelConfig configures the messaging channel's outbound delivery.
type ChannelConfig struct {
	OutboundURL string
	Token       string
}

// DigestConfig controls scheduled digest delivery.
type DigestConfig struct {
	Enabled   bool
	Schedule  string // standard 5-field cron expression
	SendDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/finsage.db"),
		KeywordRulesPath: getEnv("KEYWORD_RULES_PATH", ""),
		Generation: GenerationConfig{
			MinDelay: getEnvDuration("GENERATION_MIN_DELAY", 1*time.Second),
			MaxDelay: getEnvDuration("GENERATION_MAX_DELAY", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Channel: ChannelConfig{
			OutboundURL: getEnv("CHANNEL_OUTBOUND_URL", ""),
			Token:       getEnv("CHANNEL_TOKEN", ""),
		},
		Digest: DigestConfig{
			Enabled:   getEnvBool("DIGEST_ENABLED", false),
			Schedule:  getEnv("DIGEST_SCHEDULE", "0 8 * * *"),
			SendDelay: getEnvDuration("DIGEST_SEND_DELAY", 500*time.Millisecond),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Generation.MinDelay < 0 || c.Generation.MaxDelay < c.Generation.MinDelay {
		return fmt.Errorf("generation delay window is invalid")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.Digest.Enabled && c.Digest.Schedule == "" {
		return fmt.Errorf("DIGEST_SCHEDULE cannot be empty when digests are enabled")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
