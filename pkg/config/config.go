package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dwellio-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional; board freshness cache)
	Redis RedisConfig `yaml:"redis"`

	// Board tunables
	Board BoardConfig `yaml:"board"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL database configuration. Every board read
// fans out several property-scoped connections, so the pool limits are
// tunables rather than constants.
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"PGPORT" env-default:"5432"`
	User            string        `yaml:"user" env:"PGUSER" env-default:"dwellio"`
	Password        string        `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database        string        `yaml:"database" env:"PGDATABASE" env-default:"dwellio_engine"`
	MaxConnections  int32         `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"PGMAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"PGMAX_CONN_IDLE_TIME" env-default:"30m"`
	SSLMode         string        `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL builds a connection string for pgx.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration. An empty host disables Redis and
// the board falls back to database staleness checks on every read.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// BoardConfig holds status-board tunables. Defaults match the product
// behavior; they are configurable for testing and staged rollouts.
type BoardConfig struct {
	// FreshnessHours is how long a computed status stays fresh before a read
	// forces re-evaluation.
	FreshnessHours int `yaml:"freshness_hours" env:"BOARD_FRESHNESS_HOURS" env-default:"24"`
	// MaxPageSize caps the board page size.
	MaxPageSize int `yaml:"max_page_size" env:"BOARD_MAX_PAGE_SIZE" env-default:"100"`
	// DefaultPageSize is used when the query carries no limit.
	DefaultPageSize int `yaml:"default_page_size" env:"BOARD_DEFAULT_PAGE_SIZE" env-default:"50"`
}

// Load reads configuration from config.yaml (if present) and environment
// variables. Environment variables take precedence.
func Load(version string) (*Config, error) {
	cfg := &Config{}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	}

	cfg.Version = version

	if cfg.Board.FreshnessHours <= 0 {
		return nil, fmt.Errorf("board freshness_hours must be positive, got %d", cfg.Board.FreshnessHours)
	}
	if cfg.Board.DefaultPageSize > cfg.Board.MaxPageSize {
		return nil, fmt.Errorf("board default_page_size %d exceeds max_page_size %d",
			cfg.Board.DefaultPageSize, cfg.Board.MaxPageSize)
	}

	return cfg, nil
}
