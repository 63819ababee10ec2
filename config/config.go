// Package config loads application settings from environment variables.
// envconfig maps variables onto the Config struct; flags in cmd/server
// can still override port and database path for local runs.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application settings.
type Config struct {
	// --- Server ---
	Port           int      `envconfig:"PORT" default:"8080"`
	CORSOriginsRaw string   `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	CORSOrigins    []string `envconfig:"-"`

	// --- Database ---
	DBPath string `envconfig:"DB_PATH" default:"comanda.db"`

	// --- Application ---
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads environment variables into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	for _, o := range strings.Split(cfg.CORSOriginsRaw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}
	return nil
}
