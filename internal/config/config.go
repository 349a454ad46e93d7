// ABOUTME: Configuration management for fedimove with YAML config loading.
// ABOUTME: Handles saved account credentials, data directory overrides, and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config stores fedimove configuration loaded from
// ~/.config/fedimove/config.yaml.
type Config struct {
	// DataDir overrides where archives are stored.
	DataDir string `yaml:"data_dir,omitempty"`
	// ExtraThrottleSeconds is added to every pause between API calls.
	ExtraThrottleSeconds int `yaml:"extra_throttle_seconds,omitempty"`
	// Accounts holds one access token per instance/username pair.
	Accounts []Account `yaml:"accounts"`
}

// Account is a saved credential for one account on one instance.
type Account struct {
	Instance    string `yaml:"instance"`
	Username    string `yaml:"username"`
	AccessToken string `yaml:"access_token"`
}

// FindAccount returns the saved credential for the given instance and
// username, comparing both case-insensitively.
func (c *Config) FindAccount(instance, username string) (Account, bool) {
	for _, a := range c.Accounts {
		if strings.EqualFold(a.Instance, instance) && strings.EqualFold(a.Username, username) {
			return a, true
		}
	}
	return Account{}, false
}

// SetAccount stores a credential, replacing any existing entry for the same
// instance and username.
func (c *Config) SetAccount(acct Account) {
	for i, a := range c.Accounts {
		if strings.EqualFold(a.Instance, acct.Instance) && strings.EqualFold(a.Username, acct.Username) {
			c.Accounts[i] = acct
			return
		}
	}
	c.Accounts = append(c.Accounts, acct)
}

// GetDataDir returns the archive storage directory, honouring the config
// override.
func (c *Config) GetDataDir() (string, error) {
	if c.DataDir != "" {
		return ExpandPath(c.DataDir)
	}
	return DefaultDataDir()
}

// DefaultDataDir returns the default archive storage directory.
func DefaultDataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "fedimove", "archives"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "fedimove", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk. Tokens go in, so the file is user-readable
// only.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
