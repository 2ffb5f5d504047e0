package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. QUIZ_REDIS_ADDR.
const EnvPrefix = "QUIZ_"

type Config struct {
	Server struct {
		Port           string   `yaml:"port" env:"PORT"`
		AllowedOrigins []string `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"`
	} `yaml:"server" envPrefix:"SERVER_"`
	Redis struct {
		Addr     string `yaml:"addr" env:"ADDR"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		TTL      string `yaml:"ttl" env:"TTL"`
		LockTTL  string `yaml:"lockTtl" env:"LOCK_TTL"`
	} `yaml:"redis" envPrefix:"REDIS_"`
	Postgres struct {
		URL string `yaml:"url" env:"URL"`
	} `yaml:"postgres" envPrefix:"POSTGRES_"`
	Catalog struct {
		TTL string `yaml:"ttl" env:"TTL"`
	} `yaml:"catalog" envPrefix:"CATALOG_"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
	} `yaml:"auth" envPrefix:"AUTH_"`
	Seed struct {
		Owner string `yaml:"owner" env:"OWNER"`
		File  string `yaml:"file" env:"FILE"`
	} `yaml:"seed" envPrefix:"SEED_"`
}

// Load reads YAML config from path and applies QUIZ_* environment overrides.
// A missing file is not an error; the environment alone may configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseEnv overlays environment variables onto target.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
