// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port           int    `env:"PORT" envDefault:"8080"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	Store          string `env:"STORE" envDefault:"postgres"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	Database       DatabaseConfig
	Stats          StatsConfig
	Logging        LoggingConfig
}

// DatabaseConfig holds PostgreSQL connection settings. DATABASE_URL wins
// over the individual DB_* variables when set.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"DB_NAME" envDefault:"ewm"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	ConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
}

// StatsConfig points at the stats service that records hits and reports views.
type StatsConfig struct {
	Enabled   bool          `env:"STATS_ENABLED" envDefault:"true"`
	URL       string        `env:"STATS_URL" envDefault:"http://stats-server:9090"`
	App       string        `env:"STATS_APP" envDefault:"main-service"`
	RateLimit float64       `env:"STATS_RATE_LIMIT" envDefault:"200"`
	Timeout   time.Duration `env:"STATS_TIMEOUT" envDefault:"3s"`
}

// LoggingConfig selects the log level and output format (json or console).
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return Config{}, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Database.ConnectAttempts < 1 {
		cfg.Database.ConnectAttempts = 1
	}
	return cfg, nil
}

// DSN returns a postgres:// URL usable by both pgx and the migrator.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Development reports whether internal error details may be exposed.
func (c Config) Development() bool {
	return c.Environment == "development" || c.Environment == "test"
}
