package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the contract server configuration.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Game version selects the versioned userdata layout; empty keeps the
	// flat legacy layout.
	GameVersion string `envconfig:"GAME_VERSION" default:""`

	// Storage backend: fs, sqlite or postgres.
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"fs"`
	DataDir        string `envconfig:"DATA_DIR" default:"./data"`
	SqlitePath     string `envconfig:"SQLITE_PATH" default:"./data/contract-server.db"`

	// PostgreSQL settings (used when STORAGE_BACKEND=postgres)
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"contract_server"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	// Background profile flush period.
	ProfileFlushInterval time.Duration `envconfig:"PROFILE_FLUSH_INTERVAL" default:"3s"`

	// JSON array of challenge definitions resolved at session load. Empty
	// starts with an empty catalog.
	ChallengeCatalogPath string `envconfig:"CHALLENGE_CATALOG_PATH" default:""`

	// Operational HTTP surface (prometheus exposition, health, admin flush).
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load contract-server configuration: %w", err)
	}

	switch cfg.StorageBackend {
	case "fs", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return &cfg, nil
}
