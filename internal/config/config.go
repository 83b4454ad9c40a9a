package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration values.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS" envDefault:":8080"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"medistock.db"`
	Secret      string `env:"SECRET" envDefault:"dev_secret"`
	StaffSeed   string `env:"STAFF_SEED"`
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
