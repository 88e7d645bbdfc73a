// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/mmynk/settleup/pkg/logging"
)

const minSecretLength = 16

// Config is the server configuration.
type Config struct {
	Port   int
	DBPath string

	// RedisAddr selects the Redis balance cache. Empty keeps the cache in SQLite.
	RedisAddr string
	RedisDB   int
	CacheTTL  time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel slog.Level

	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads the configuration and reports every invalid value at once.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "./data/settleup.db"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AllowedOrigin: getEnv("CORS_ORIGIN", "*"),
	}

	var errList []error
	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		errList = append(errList, fmt.Errorf("PORT: invalid port %q", os.Getenv("PORT")))
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil || cfg.RedisDB < 0 {
		errList = append(errList, fmt.Errorf("REDIS_DB: invalid database %q", os.Getenv("REDIS_DB")))
	}
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", "24h"); err != nil {
		errList = append(errList, err)
	}
	if cfg.TokenTTL, err = parseDuration("TOKEN_TTL", "24h"); err != nil {
		errList = append(errList, err)
	}
	if cfg.LogLevel, err = logging.ParseLevel(os.Getenv("LOG_LEVEL")); err != nil {
		errList = append(errList, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if len(cfg.JWTSecret) < minSecretLength {
		errList = append(errList, fmt.Errorf("JWT_SECRET: must be at least %d characters", minSecretLength))
	}

	if len(errList) > 0 {
		return nil, errors.Join(errList...)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}
