// Package config loads command line configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment configuration of the dimdoors command.
type Config struct {
	DataPack     string        `env:"DIMDOORS_DATAPACK"`
	Namespace    string        `env:"DIMDOORS_NAMESPACE" envDefault:"dimdoors"`
	MaxDepth     int           `env:"DIMDOORS_MAX_DEPTH" envDefault:"64"`
	CacheEntries int           `env:"DIMDOORS_CACHE_ENTRIES" envDefault:"512"`
	CacheTTL     time.Duration `env:"DIMDOORS_CACHE_TTL"`
	Database     string        `env:"DIMDOORS_DB" envDefault:"pockets.db"`
	OTelEndpoint string        `env:"DIMDOORS_OTEL_ENDPOINT"`
	OTelEnabled  bool          `env:"DIMDOORS_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	if c.CacheEntries <= 0 {
		return fmt.Errorf("cache entries must be positive, got %d", c.CacheEntries)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", c.CacheTTL)
	}
	return nil
}
