package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/buybox/internal/buybox"
	"github.com/evcraddock/buybox/internal/db"
	"github.com/evcraddock/buybox/internal/finance"
)

// Config holds CLI configuration persisted to disk.
type Config struct {
	DBPath    string              `yaml:"db_path,omitempty" json:"db_path"`
	BuyBoxDir string              `yaml:"buybox_dir,omitempty" json:"buybox_dir"`
	Workers   int                 `yaml:"workers,omitempty" json:"workers"`
	Dev       bool                `yaml:"dev,omitempty" json:"dev"`
	Finance   finance.Assumptions `yaml:"finance" json:"finance"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bb", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns the default config if the file doesn't exist. Finance keys
// missing from the file keep their defaults.
func loadConfig() (Config, error) {
	cfg := Config{Finance: finance.DefaultAssumptions()}

	path, err := configPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// loadEnvFile loads a .env file from the working directory. Variables that
// are already set win.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// loadSettings resolves configuration in order of precedence: flags, then
// BB_* environment variables (including .env), then the config file, then
// defaults.
func loadSettings() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	s, err := loadConfig()
	if err != nil {
		return Config{}, err
	}

	if v := os.Getenv("BB_DB"); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv("BB_BUYBOX_DIR"); v != "" {
		s.BuyBoxDir = v
	}
	if v := os.Getenv("BB_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid BB_WORKERS %q", v)
		}
		s.Workers = n
	}
	if v := os.Getenv("BB_DEV"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BB_DEV %q", v)
		}
		s.Dev = dev
	}

	if flagDB != "" {
		s.DBPath = flagDB
	}
	if flagDir != "" {
		s.BuyBoxDir = flagDir
	}

	if s.DBPath == "" {
		if s.DBPath, err = db.DefaultPath(); err != nil {
			return Config{}, err
		}
	}
	if s.BuyBoxDir == "" {
		if s.BuyBoxDir, err = buybox.DefaultDir(); err != nil {
			return Config{}, err
		}
	}

	if err := s.Finance.Validate(); err != nil {
		return Config{}, fmt.Errorf("finance config: %w", err)
	}

	return s, nil
}
