package config

import (
	"fmt"
	"github.com/caarlos0/env/v11"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

// SettingsBackend selects where the tracker settings are persisted.
type SettingsBackend string

const (
	SettingsFile  SettingsBackend = "file"
	SettingsRedis SettingsBackend = "redis"
)

func (b SettingsBackend) IsValid() bool {
	switch b {
	case SettingsFile, SettingsRedis:
		return true
	}
	return false
}

type Config struct {
	APIServerHost         string          `env:"API_SERVER_HOST"`
	APIServerPort         string          `env:"API_SERVER_PORT" envDefault:"8081"`
	RedisHost             string          `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort             string          `env:"REDIS_PORT" envDefault:"6379"`
	RedisLocationsChannel string          `env:"REDIS_LOCATIONS_CHANNEL"` // empty disables ingest
	SettingsBackend       SettingsBackend `env:"SETTINGS_BACKEND" envDefault:"file"`
	DataDir               string          `env:"DATA_DIR"`
	MaxPointCount         int             `env:"TRACK_MAX_POINTS" envDefault:"100000"`
	CompactThreshold      int             `env:"TRACK_COMPACT_THRESHOLD" envDefault:"4096"`
	Env                   Env             `env:"ENV" envDefault:"prod"`
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.SettingsBackend == SettingsRedis || c.RedisLocationsChannel != ""
}

func New() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Env.IsValid() {
		return nil, fmt.Errorf("invalid env variable (must be 'prod' or 'dev')")
	}
	if !cfg.SettingsBackend.IsValid() {
		return nil, fmt.Errorf("invalid settings backend %q (must be 'file' or 'redis')", cfg.SettingsBackend)
	}
	if cfg.MaxPointCount <= 0 {
		return nil, fmt.Errorf("invalid max point count: %d", cfg.MaxPointCount)
	}
	if cfg.CompactThreshold <= 0 {
		return nil, fmt.Errorf("invalid compaction threshold: %d", cfg.CompactThreshold)
	}
	return &cfg, nil
}
