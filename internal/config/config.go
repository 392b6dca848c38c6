package config

import (
	"errors"
	"field-route-service/internal/platform/db"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process settings read from the environment.
type Config struct {
	Port        string
	DBDriver    db.Dialect
	DatabaseURL string
	DBPath      string
	RedisAddr   string
	SeedPath    string
	Location    *time.Location

	MonitorEnabled     bool
	MonitorInterval    time.Duration
	MonitorConcurrency int
	GPSFreshness       time.Duration

	NotifyWebhookURL string
	NotifyTimeout    time.Duration

	TuningPath string
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	driver, err := db.ParseDialect(getEnv("DB_DRIVER", string(db.SQLite)))
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("config: TIMEZONE=%q: %w", tz, err)
	}

	cfg := Config{
		Port:        strings.TrimPrefix(getEnv("PORT", "8080"), ":"),
		DBDriver:    driver,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "data/app.db"),
		RedisAddr:   strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		SeedPath:    os.Getenv("SEED_PATH"),
		Location:    loc,

		NotifyWebhookURL: strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
		TuningPath:       strings.TrimSpace(os.Getenv("TUNING_PATH")),
	}

	var errs []error
	cfg.MonitorEnabled, err = getEnvBool("MONITOR_ENABLED", true)
	errs = append(errs, err)
	cfg.MonitorInterval, err = getEnvDuration("MONITOR_INTERVAL", time.Minute)
	errs = append(errs, err)
	cfg.MonitorConcurrency, err = getEnvInt("MONITOR_CONCURRENCY", 8)
	errs = append(errs, err)
	cfg.GPSFreshness, err = getEnvDuration("GPS_FRESHNESS", 0)
	errs = append(errs, err)
	cfg.NotifyTimeout, err = getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if cfg.MonitorInterval <= 0 {
		return Config{}, fmt.Errorf("config: MONITOR_INTERVAL must be positive")
	}
	if cfg.MonitorConcurrency <= 0 {
		return Config{}, fmt.Errorf("config: MONITOR_CONCURRENCY must be positive")
	}
	if cfg.GPSFreshness <= 0 {
		cfg.GPSFreshness = cfg.MonitorInterval
	}
	if cfg.DBDriver == db.Postgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required when DB_DRIVER=%s", cfg.DBDriver)
	}

	return cfg, nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == db.Postgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return d, nil
}
