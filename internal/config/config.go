// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config holding every default.
// - Load layers an optional YAML file and RECIPEBOX_* env vars on top.
// - Validation failures wrap ErrInvalidConfig; loader failures wrap ErrLoadConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080". ":0" picks a free port.
	Addr string `koanf:"addr"`

	// HTTP server timeouts in milliseconds.
	ReadTimeoutMS     int `koanf:"read_timeout_ms"`
	WriteTimeoutMS    int `koanf:"write_timeout_ms"`
	IdleTimeoutMS     int `koanf:"idle_timeout_ms"`
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// RateLimitRPS caps requests per second across all clients. 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Seed lists the recipes loaded into the store at start.
	Seed []SeedRecipe `koanf:"seed"`
}

// SeedRecipe is one entry of the startup seed set.
type SeedRecipe struct {
	Name        string   `koanf:"name"`
	Ingredients []string `koanf:"ingredients"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		ReadTimeoutMS:     10_000,
		WriteTimeoutMS:    10_000,
		IdleTimeoutMS:     60_000,
		ShutdownTimeoutMS: 30_000,
		RateLimitRPS:      0,
		RateLimitBurst:    100,
		MaxBodyBytes:      1 << 20,
		Seed:              DefaultSeed(),
	}
}

// DefaultSeed returns the recipes every fresh process starts with.
func DefaultSeed() []SeedRecipe {
	return []SeedRecipe{
		{Name: "boiled white rice", Ingredients: []string{"1 cup white rice", "2 cups water", "pinch of salt"}},
		{Name: "milkshake", Ingredients: []string{"2 tbsp cocoa", "2 cups vanilla ice cream", "1 cup milk"}},
	}
}

// ReadTimeout returns ReadTimeoutMS as a duration.
func (c *Config) ReadTimeout() time.Duration { return ms(c.ReadTimeoutMS) }

// WriteTimeout returns WriteTimeoutMS as a duration.
func (c *Config) WriteTimeout() time.Duration { return ms(c.WriteTimeoutMS) }

// IdleTimeout returns IdleTimeoutMS as a duration.
func (c *Config) IdleTimeout() time.Duration { return ms(c.IdleTimeoutMS) }

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration { return ms(c.ShutdownTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Validate checks invariants the loader cannot express through types.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ReadTimeoutMS < 0, c.WriteTimeoutMS < 0, c.IdleTimeoutMS < 0, c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst < 1:
		return fmt.Errorf("%w: rate_limit_burst must be at least 1 when rate limiting is enabled", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
