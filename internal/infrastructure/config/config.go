// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for kin configuration.
	DefaultConfigDir = ".kin"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultCatalogFile is the default catalog file name.
	DefaultCatalogFile = "catalog.yaml"
	// DefaultSQLiteFile is the default SQLite database file name.
	DefaultSQLiteFile = "kin.db"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	Catalog  CatalogConfig  `yaml:"catalog,omitempty"`
}

// StorageConfig selects the relational backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"KIN_STORAGE_DRIVER"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the database file. Relative paths are resolved against the
	// directory holding .kin. ":memory:" opens a private in-memory database.
	Path string `yaml:"path,omitempty" env:"KIN_SQLITE_PATH"`
}

// PostgresConfig holds configuration for the PostgreSQL relational database.
type PostgresConfig struct {
	DSN      string `yaml:"dsn,omitempty" env:"KIN_POSTGRES_DSN"`
	MaxConns int32  `yaml:"max_conns,omitempty" env:"KIN_POSTGRES_MAX_CONNS"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"LOG_FORMAT"`
}

// CatalogConfig points at a custom relationship catalog.
type CatalogConfig struct {
	// Path is the catalog file. Empty means .kin/catalog.yaml when present,
	// otherwise the built-in catalog.
	Path string `yaml:"path,omitempty" env:"KIN_CATALOG_PATH"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Driver: DriverSQLite},
		SQLite:  SQLiteConfig{Path: filepath.Join(DefaultConfigDir, DefaultSQLiteFile)},
		Postgres: PostgresConfig{
			MaxConns: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the .kin directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'kin init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Variables that
// are unset leave the file values alone.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// Validate checks the storage settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres driver (or set KIN_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (valid: %s, %s)", c.Storage.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}

// SQLitePath resolves the SQLite path against basePath.
func (c *Config) SQLitePath(basePath string) string {
	if c.SQLite.Path == ":memory:" || filepath.IsAbs(c.SQLite.Path) {
		return c.SQLite.Path
	}
	return filepath.Join(basePath, c.SQLite.Path)
}

// CatalogPath resolves the catalog path against basePath.
func (c *Config) CatalogPath(basePath string) string {
	if c.Catalog.Path == "" {
		return CatalogFilePath(basePath)
	}
	if filepath.IsAbs(c.Catalog.Path) {
		return c.Catalog.Path
	}
	return filepath.Join(basePath, c.Catalog.Path)
}

// ConfigDir returns the path to the .kin config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// CatalogFilePath returns the path to the default catalog file.
func CatalogFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultCatalogFile)
}
