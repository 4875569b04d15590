package api

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds backend connection settings.
type Config struct {
	// BaseURL is the service root, e.g. "https://api.trailmap.dev".
	BaseURL string

	// Token is the bearer credential for protected endpoints. Treated as
	// an opaque string; acquisition and storage are the host's concern.
	Token string

	// Locale is forwarded on generation requests ("en" or "ja").
	Locale string

	// PollInterval is the delay between job status checks. Default: 2s.
	PollInterval time.Duration

	// MaxPolls caps the number of status checks per job. Default: 60,
	// roughly two minutes at the default interval.
	MaxPolls int

	// Timeout bounds a single HTTP round trip. Default: 30s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with production polling values.
func DefaultConfig() Config {
	return Config{
		Locale:       "en",
		PollInterval: 2 * time.Second,
		MaxPolls:     60,
		Timeout:      30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from TRAILMAP_* environment variables,
// falling back to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if u := os.Getenv("TRAILMAP_API_URL"); u != "" {
		cfg.BaseURL = u
	}
	if t := os.Getenv("TRAILMAP_TOKEN"); t != "" {
		cfg.Token = t
	}
	if l := os.Getenv("TRAILMAP_LOCALE"); l != "" {
		cfg.Locale = l
	}
	if v := os.Getenv("TRAILMAP_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("TRAILMAP_MAX_POLLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPolls = n
		}
	}

	return cfg
}

// Validate checks that the Config can reach a backend.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("TRAILMAP_API_URL is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.MaxPolls <= 0 {
		return fmt.Errorf("max polls must be positive")
	}
	return nil
}
