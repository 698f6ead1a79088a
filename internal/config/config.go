package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pricewatch/pricewatch/internal/database"
)

type Config struct {
	Server   ServerConfig
	Database database.Config
	Redis    RedisConfig
	Scraper  ScraperConfig
	Relay    RelayConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type ScraperConfig struct {
	FetchTimeout     time.Duration
	PageLoadTimeout  time.Duration
	Headless         bool
	MaxSessions      int
	SnapshotDir      string
	RescrapeInterval time.Duration
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("PORT", 8080),
		},
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "pricewatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Scraper: ScraperConfig{
			FetchTimeout:     getEnvDuration("SCRAPER_FETCH_TIMEOUT", 15*time.Second),
			PageLoadTimeout:  getEnvDuration("SCRAPER_PAGE_TIMEOUT", 30*time.Second),
			Headless:         getEnvBool("SCRAPER_HEADLESS", true),
			MaxSessions:      getEnvInt("MAX_BROWSER_SESSIONS", 2),
			SnapshotDir:      getEnv("SCRAPER_SNAPSHOT_DIR", ""),
			RescrapeInterval: getEnvDuration("RESCRAPE_INTERVAL", 24*time.Hour),
		},
		Relay: RelayConfig{
			PollInterval: getEnvDuration("RELAY_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getEnvInt("RELAY_BATCH_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Scraper.MaxSessions < 1 {
		return fmt.Errorf("at least 1 browser session is required")
	}

	if c.Scraper.RescrapeInterval < time.Minute {
		return fmt.Errorf("rescrape interval must be at least one minute")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
