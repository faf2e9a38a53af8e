package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds construction-time settings for a Cache. The zero value is
// usable; missing fields fall back to the same defaults the environment
// variables carry.
type Config struct {
	// Dir is the root directory for the file tier.
	Dir string `env:"CACHE_DIR"`

	// TTLDays is the default entry time-to-live in days.
	TTLDays int `env:"CACHE_TTL_DAYS" envDefault:"7"`

	// MaxMemoryEntries bounds the memory tier; least-recently-used
	// entries are evicted beyond it.
	MaxMemoryEntries int `env:"CACHE_MAX_MEMORY_ENTRIES" envDefault:"1000"`
}

// ConfigFromEnv reads configuration from CACHE_DIR, CACHE_TTL_DAYS and
// CACHE_MAX_MEMORY_ENTRIES.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("cache: parse environment: %w", err)
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.Dir == "" {
		c.Dir = filepath.Join(os.TempDir(), "homebook_cache")
	}
	if c.TTLDays <= 0 {
		c.TTLDays = 7
	}
	if c.MaxMemoryEntries <= 0 {
		c.MaxMemoryEntries = 1000
	}
	return c
}

func (c Config) defaultTTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}
