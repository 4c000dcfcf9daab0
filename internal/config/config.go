// Package config loads the CLI's TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Backend names for the storage section.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	// BackendPostgresSQL talks to PostgreSQL through database/sql and
	// lib/pq instead of the native pgx pool.
	BackendPostgresSQL = "postgres-sql"
)

// StorageConfig selects and configures the log store.
type StorageConfig struct {
	// Backend is one of "file", "sqlite" or "postgres".
	Backend string `toml:"backend"`

	// LogsDir is the root directory for the file backend.
	LogsDir string `toml:"logs_dir"`

	// DatabaseURL is the DSN for the sqlite and postgres backends.
	DatabaseURL string `toml:"database_url"`

	// Backup keeps a pre-rewrite copy of each log (file backend only).
	Backup bool `toml:"backup"`
}

// CompactionConfig holds the compaction tunables.
type CompactionConfig struct {
	WindowSize     int    `toml:"window_size"`
	MergeDelimiter string `toml:"merge_delimiter"`
	Workers        int    `toml:"workers"`
}

// Config is the CLI configuration file.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Compaction CompactionConfig `toml:"compaction"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			LogsDir: defaultLogsDir(),
			Backup:  true,
		},
		Compaction: CompactionConfig{
			WindowSize:     3,
			MergeDelimiter: "\n",
			Workers:        4,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	if homeDir == "" {
		return "logpack.toml"
	}
	return filepath.Join(homeDir, ".logpack", "config.toml")
}

// LoadOrCreate reads the config at path, writing the defaults there
// first when the file does not exist.
func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return config, err
			}

			configData, err := toml.Marshal(config)
			if err != nil {
				return config, err
			}

			if err := os.WriteFile(path, configData, 0o644); err != nil {
				return config, err
			}

			return config, nil
		}

		return config, err
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := toml.Unmarshal(configData, &config); err != nil {
		return config, err
	}

	config.Storage.LogsDir = expandPath(config.Storage.LogsDir)
	config.Storage.Backend = strings.TrimSpace(config.Storage.Backend)
	if config.Storage.Backend == "" {
		config.Storage.Backend = BackendFile
	}

	return config, config.validate()
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.LogsDir == "" {
			return fmt.Errorf("storage.logs_dir is required for the file backend")
		}
	case BackendSQLite, BackendPostgres, BackendPostgresSQL:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func defaultLogsDir() string {
	homeDir, _ := os.UserHomeDir()
	if homeDir == "" {
		return "logs"
	}
	return filepath.Join(homeDir, ".logpack", "logs")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		if homeDir != "" {
			trimmed := strings.TrimPrefix(path, "~")
			trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))
			return filepath.Join(homeDir, trimmed)
		}
	}
	return path
}
