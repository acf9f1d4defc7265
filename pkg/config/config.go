// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration shared by the CLI and the worker.
type Config struct {
	// Application
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`

	// Database. An empty DATABASE_URL selects SQLite at SQLITE_PATH.
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseDriver string `env:"DATABASE_DRIVER"`
	SQLitePath     string `env:"SQLITE_PATH"`

	// Redis scope cache; disabled when empty.
	RedisURL      string        `env:"REDIS_URL"`
	ScopeCacheTTL time.Duration `env:"SCOPE_CACHE_TTL" envDefault:"5m"`

	// RabbitMQ; the worker relays in-process when empty.
	RabbitMQURL string `env:"RABBITMQ_URL"`

	// Outbox
	OutboxPollInterval     time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	OutboxBatchSize        int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxRetries       int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	OutboxRetentionDays    int           `env:"OUTBOX_RETENTION_DAYS" envDefault:"14"`
	OutboxCleanupInterval  time.Duration `env:"OUTBOX_CLEANUP_INTERVAL" envDefault:"24h"`
	OutboxProcessorEnabled bool          `env:"OUTBOX_PROCESSOR_ENABLED" envDefault:"true"`
	OutboxStatsInterval    time.Duration `env:"OUTBOX_STATS_INTERVAL" envDefault:"1m"`

	// Worker
	WorkerHealthAddr string `env:"WORKER_HEALTH_ADDR" envDefault:"0.0.0.0:8081"`
	ConsumerQueue    string `env:"CONSUMER_QUEUE" envDefault:"hearth.scope-cache"`

	// Tracing; disabled when empty.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	// Caller-side retries on concurrent primary assignment conflicts.
	ConflictRetries uint64 `env:"CONFLICT_RETRIES" envDefault:"3"`
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects values the processes cannot run with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER %q: want sqlite or postgres", c.DatabaseDriver)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive, got %s", c.OutboxPollInterval)
	}
	if c.OutboxCleanupInterval <= 0 {
		return fmt.Errorf("OUTBOX_CLEANUP_INTERVAL must be positive, got %s", c.OutboxCleanupInterval)
	}
	return nil
}

// LocalMode reports whether the process runs against a local SQLite file.
func (c *Config) LocalMode() bool {
	if c.DatabaseDriver != "" {
		return c.DatabaseDriver == "sqlite"
	}
	return c.DatabaseURL == ""
}

// OutboxRetention is the age after which published outbox rows are purged.
func (c *Config) OutboxRetention() time.Duration {
	return time.Duration(c.OutboxRetentionDays) * 24 * time.Hour
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
