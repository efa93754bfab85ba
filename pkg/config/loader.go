package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using `env`
// tags. Service-level validation (port ranges, backend selection) lives in
// internal/config on top of this.
//
// Example:
//
//	type Config struct {
//	    Port         int    `env:"HTTP_PORT" envDefault:"8080"`
//	    StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
