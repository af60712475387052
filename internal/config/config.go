package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"KORA_PORT"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" env:"KORA_LOG_LEVEL"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" env:"KORA_REDIS_ADDR"`
		Password string `yaml:"password" env:"KORA_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"KORA_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"KORA_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"KORA_POSTGRES_URL"`
	} `yaml:"postgres"`
	Catalog struct {
		TTL string `yaml:"ttl" env:"KORA_CATALOG_TTL"`
		Dir string `yaml:"dir" env:"KORA_CATALOG_DIR"`
	} `yaml:"catalog"`
	Games struct {
		DefaultDelay string `yaml:"default_delay" env:"KORA_DEFAULT_DELAY"`
	} `yaml:"games"`
}

// Load reads YAML config from path, then applies KORA_* environment overrides.
// A missing file is not an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables. Unset variables leave fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DurationOr parses a duration string or returns the fallback if empty or invalid.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
