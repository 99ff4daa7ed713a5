package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var ErrConfigNotFound = errors.New("config not found")

const appDir = "hyprlingo"

// GetConfigPath returns $XDG_CONFIG_HOME/hyprlingo/config.toml, creating the directory.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, appDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns $XDG_DATA_HOME/hyprlingo (or ~/.local/share/hyprlingo).
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appDir), nil
}

// ResolvePath returns path, or the default config path when empty.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetConfigPath()
}

// LoadEnv reads provider keys from a dotenv file: path when set, otherwise
// .env next to the default config file. Variables already set in the
// environment win. A missing default file is not an error.
func LoadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envPath, err)
	}
	return nil
}

// Load reads the config at path (default location when empty) on top of the
// defaults. A missing file yields ErrConfigNotFound.
func Load(path string) (*Config, error) {
	configPath, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s (run hyprlingo configure)", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadOrDefault is Load, falling back to defaults when the file is missing.
// The second return reports whether a file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	config, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		config = DefaultConfig()
		if err := config.applyDefaults(); err != nil {
			return nil, false, err
		}
		return config, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return config, true, nil
}

// Save writes the config as TOML, replacing the file atomically.
func Save(config *Config, path string) error {
	configPath, err := ResolvePath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# hyprlingo configuration\n# Changes are picked up by a running server for new connections.\n\n")
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// applyDefaults fills values that depend on the environment.
func (c *Config) applyDefaults() error {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if c.Storage.Path == "" {
		dir, err := DataDir()
		if err != nil {
			return err
		}
		c.Storage.Path = filepath.Join(dir, "hyprlingo.db")
	}
	return nil
}
