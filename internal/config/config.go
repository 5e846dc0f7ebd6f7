package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// Image generation
	ImageGenAPIKey       string
	ImageGenBaseURL      string
	ImageGenModel        string
	ImageGenPollInterval time.Duration
	ImageGenMaxAttempts  int

	// Fetching
	FetchTimeout       time.Duration
	FetchMaxRetries    int
	ExtractConcurrency int

	// Twitter direct credentials (OAuth 1.0a user context)
	TwitterAPIKey       string
	TwitterAPISecret    string
	TwitterAccessToken  string
	TwitterAccessSecret string

	// LinkedIn direct credentials
	LinkedInAccessToken string
	LinkedInAuthorURN   string

	// Delegated auth broker
	BrokerBaseURL string
	BrokerAPIKey  string
	BrokerUserID  string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:        getEnv("DATABASE_PATH", "data/postpilot.db"),
		ImageGenAPIKey:      getEnv("IMAGEGEN_API_KEY", ""),
		ImageGenBaseURL:     getEnv("IMAGEGEN_BASE_URL", ""),
		ImageGenModel:       getEnv("IMAGEGEN_MODEL", ""),
		TwitterAPIKey:       getEnv("TWITTER_API_KEY", ""),
		TwitterAPISecret:    getEnv("TWITTER_API_SECRET", ""),
		TwitterAccessToken:  getEnv("TWITTER_ACCESS_TOKEN", ""),
		TwitterAccessSecret: getEnv("TWITTER_ACCESS_SECRET", ""),
		LinkedInAccessToken: getEnv("LINKEDIN_ACCESS_TOKEN", ""),
		LinkedInAuthorURN:   getEnv("LINKEDIN_AUTHOR_URN", ""),
		BrokerBaseURL:       getEnv("BROKER_BASE_URL", ""),
		BrokerAPIKey:        getEnv("BROKER_API_KEY", ""),
		BrokerUserID:        getEnv("BROKER_USER_ID", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	// Parse durations
	var err error
	cfg.ImageGenPollInterval, err = time.ParseDuration(getEnv("IMAGEGEN_POLL_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGEGEN_POLL_INTERVAL: %w", err)
	}

	cfg.FetchTimeout, err = time.ParseDuration(getEnv("FETCH_TIMEOUT", "20s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	// Parse integers
	cfg.ImageGenMaxAttempts, err = parseIntEnv("IMAGEGEN_MAX_ATTEMPTS", 60)
	if err != nil {
		return nil, err
	}
	cfg.FetchMaxRetries, err = parseIntEnv("FETCH_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	cfg.ExtractConcurrency, err = parseIntEnv("EXTRACT_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// ValidateForImageGen checks configuration needed for image generation.
func (c *Config) ValidateForImageGen() error {
	if c.ImageGenAPIKey == "" {
		return fmt.Errorf("IMAGEGEN_API_KEY is required for image generation")
	}
	return nil
}

// HasTwitterDirect reports whether the direct Twitter credential set
// is complete.
func (c *Config) HasTwitterDirect() bool {
	return c.TwitterAPIKey != "" && c.TwitterAPISecret != "" &&
		c.TwitterAccessToken != "" && c.TwitterAccessSecret != ""
}

// HasLinkedInDirect reports whether the direct LinkedIn credential set
// is complete.
func (c *Config) HasLinkedInDirect() bool {
	return c.LinkedInAccessToken != "" && c.LinkedInAuthorURN != ""
}

// HasBroker reports whether the delegated-broker credential set is
// complete.
func (c *Config) HasBroker() bool {
	return c.BrokerAPIKey != "" && c.BrokerUserID != ""
}

// ValidateForPublish checks that at least one credential set is
// complete for the given platform.
func (c *Config) ValidateForPublish(platform string) error {
	switch platform {
	case "twitter":
		if c.HasTwitterDirect() || c.HasBroker() {
			return nil
		}
		return fmt.Errorf("twitter needs TWITTER_API_KEY/TWITTER_API_SECRET/TWITTER_ACCESS_TOKEN/TWITTER_ACCESS_SECRET or BROKER_API_KEY/BROKER_USER_ID")
	case "linkedin":
		if c.HasLinkedInDirect() || c.HasBroker() {
			return nil
		}
		return fmt.Errorf("linkedin needs LINKEDIN_ACCESS_TOKEN/LINKEDIN_AUTHOR_URN or BROKER_API_KEY/BROKER_USER_ID")
	}
	return fmt.Errorf("unknown platform %q (must be 'twitter' or 'linkedin')", platform)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}
