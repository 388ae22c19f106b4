package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files, or ./.env when none
// are given. Missing files are not an error; variables already present in
// the environment are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with SITEGUARD_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v := env("SITEGUARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("SITEGUARD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := env("SITEGUARD_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := env("SITEGUARD_SOURCE_DRIVER"); v != "" {
		cfg.Source.Driver = v
	}
	if v := env("SITEGUARD_HTTP_BASE_URL"); v != "" {
		cfg.Source.HTTP.BaseURL = v
	}
	if v := env("SITEGUARD_HTTP_TOKEN"); v != "" {
		cfg.Source.HTTP.Token = v
	}
	if v := env("SITEGUARD_REDIS_ADDR"); v != "" {
		cfg.Source.Redis.Addr = v
	}
	if v := env("SITEGUARD_REDIS_PASSWORD"); v != "" {
		cfg.Source.Redis.Password = v
	}
	if v := env("SITEGUARD_KAFKA_BROKERS"); v != "" {
		cfg.Source.Kafka.Brokers = splitList(v)
	}
	if v := env("SITEGUARD_SQL_DSN"); v != "" {
		cfg.Source.SQL.DSN = v
	}
	if v := env("SITEGUARD_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SITEGUARD_REFRESH_INTERVAL: %w", err)
		}
		cfg.Refresh.Interval = d
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
