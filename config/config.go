// Package config loads snekserve settings.
//
// Search order: explicit path -> ./snekserve.yaml -> built-in defaults.
// Environment variables are applied on top of whichever file was used.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LocalFile is tried when no explicit config path is given.
const LocalFile = "snekserve.yaml"

type Config struct {
	Listen            string        `yaml:"listen"`
	MetricsListen     string        `yaml:"metrics_listen"`
	ServerHeader      string        `yaml:"server_header"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	Log    LogConfig    `yaml:"log"`
	Snake  SnakeConfig  `yaml:"snake"`
	Status StatusConfig `yaml:"status"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// SnakeConfig is the appearance reported on GET / and the move RNG seed.
type SnakeConfig struct {
	Color string `yaml:"color"`
	Head  string `yaml:"head"`
	Tail  string `yaml:"tail"`
	Seed  int64  `yaml:"seed"` // 0 seeds from the clock
}

// StatusConfig maps application errors to HTTP status codes. The engine
// expects 200 for both.
type StatusConfig struct {
	InvalidJSON int `yaml:"invalid_json"`
	NoHandler   int `yaml:"no_handler"`
}

func Default() Config {
	return Config{
		Listen:            ":8000",
		ServerHeader:      "battlesnake/go",
		MaxBodyBytes:      1 << 20,
		ReadHeaderTimeout: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Snake: SnakeConfig{
			Color: "#F30303",
			Head:  "default",
			Tail:  "default",
		},
		Status: StatusConfig{
			InvalidJSON: 200,
			NoHandler:   200,
		},
	}
}

// Load reads the configuration. A missing explicit path is an error; a
// missing ./snekserve.yaml is not.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if data, err := os.ReadFile(LocalFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", LocalFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read config %s: %w", LocalFile, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("SNEK_LISTEN"); ok {
		cfg.Listen = v
	}
	if v, ok := os.LookupEnv("SNEK_METRICS_LISTEN"); ok {
		cfg.MetricsListen = v
	}
	if v, ok := os.LookupEnv("SNEK_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("SNEK_LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	if v, ok := os.LookupEnv("SNEK_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SNEK_SEED: %w", err)
		}
		cfg.Snake.Seed = seed
	}
	return nil
}

// Validate reports the first setting that cannot be served.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.ReadHeaderTimeout < 0 {
		return fmt.Errorf("read_header_timeout must not be negative, got %s", c.ReadHeaderTimeout)
	}
	for name, code := range map[string]int{"status.invalid_json": c.Status.InvalidJSON, "status.no_handler": c.Status.NoHandler} {
		if code < 100 || code > 599 {
			return fmt.Errorf("%s must be an HTTP status code, got %d", name, code)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
