// Package config loads daemon configuration from a TOML file with
// environment overrides for secrets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Log LogConfig `toml:"log"`
	Sim SimConfig `toml:"sim"`
	Map MapConfig `toml:"map"`
	DB  DBConfig  `toml:"db"`
	API APIConfig `toml:"api"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"` // "text" or "json"
	AddSource bool       `toml:"add_source"`
}

type SimConfig struct {
	Seed           int64   `toml:"seed"`             // 0 picks a random seed
	Speed          float64 `toml:"speed"`            // tick rate multiplier
	TickIntervalMs int     `toml:"tick_interval_ms"` // wall-clock base per tick
	AICompanies    int     `toml:"ai_companies"`
	StartingCash   float64 `toml:"starting_cash"`
}

type MapConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	Cities int `toml:"cities"`
}

type DBConfig struct {
	Path         string `toml:"path"`
	SaveEveryDay bool   `toml:"save_every_day"`
}

type APIConfig struct {
	Addr       string `toml:"addr"`
	AdminKey   string `toml:"admin_key"` // MAGNATE_ADMIN_KEY overrides
	RatePerMin int    `toml:"rate_per_min"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: slog.LevelInfo, Format: "text"},
		Sim: SimConfig{
			Seed:           0,
			Speed:          1.0,
			TickIntervalMs: 250,
			AICompanies:    4,
			StartingCash:   2_000_000,
		},
		Map: MapConfig{Width: 256, Height: 256, Cities: 6},
		DB:  DBConfig{Path: "data/magnate.db", SaveEveryDay: true},
		API: APIConfig{Addr: ":8080", RatePerMin: 120},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Environment variables override secrets either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No file is fine, run on defaults.
	case err != nil:
		return nil, fmt.Errorf("failed to open config: %w", err)
	default:
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MAGNATE_ADMIN_KEY"); v != "" {
		cfg.API.AdminKey = v
	}
	if v := os.Getenv("MAGNATE_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("MAGNATE_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("MAGNATE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Sim.Seed = seed
		}
	}
}

func (c *Config) validate() error {
	if c.Sim.TickIntervalMs <= 0 {
		return fmt.Errorf("sim.tick_interval_ms must be positive, got %d", c.Sim.TickIntervalMs)
	}
	if c.Sim.Speed < 0 {
		return fmt.Errorf("sim.speed must be non-negative, got %v", c.Sim.Speed)
	}
	if c.Map.Width < 32 || c.Map.Height < 32 {
		return fmt.Errorf("map must be at least 32x32, got %dx%d", c.Map.Width, c.Map.Height)
	}
	if c.Map.Cities < 1 {
		return fmt.Errorf("map.cities must be at least 1, got %d", c.Map.Cities)
	}
	if c.API.RatePerMin < 1 {
		return fmt.Errorf("api.rate_per_min must be at least 1, got %d", c.API.RatePerMin)
	}
	return nil
}
