// Package config loads service configuration from a TOML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds everything cmd/api needs to wire the service.
type Config struct {
	Addr           string `toml:"addr"`
	PGDSN          string `toml:"pg_dsn"`
	RateBurst      int    `toml:"rate_burst"`
	RatePerSec     int    `toml:"rate_per_sec"`
	AuctionCapDays int    `toml:"auction_cap_days"`
}

// Load reads the file at path when it is non-empty, applies defaults and
// environment overrides, and validates the result. An empty path yields the
// default configuration.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 20
	}
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = 10
	}
	if cfg.AuctionCapDays == 0 {
		cfg.AuctionCapDays = 30
	}
}

// Environment always wins over the file so deployments can override a baked
// config without editing it.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ASSETRA_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSETRA_PG_DSN")); v != "" {
		cfg.PGDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ASSETRA_AUCTION_CAP_DAYS")); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.AuctionCapDays = days
		}
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("config missing addr")
	}
	if cfg.RateBurst < 1 || cfg.RatePerSec < 1 {
		return fmt.Errorf("rate limit values must be positive")
	}
	if cfg.AuctionCapDays < 1 {
		return fmt.Errorf("auction_cap_days must be positive")
	}
	return nil
}
