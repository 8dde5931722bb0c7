// Package config loads tienda configuration from ~/.tienda/config.yaml
// with TIENDA_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tienda configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend API endpoints
	API APIConfig `yaml:"api"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend REST endpoints.
type APIConfig struct {
	// BaseURL serves products, cart, orders, profile and menu.
	BaseURL string `yaml:"base_url"`

	// AuthBaseURL serves login, register and session validation.
	// Defaults to BaseURL when empty.
	AuthBaseURL string `yaml:"auth_base_url"`

	// Timeout for a single request, e.g. "15s".
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "tienda",
		Version: "1.0.0",
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: "15s",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// HomeDir returns the tienda state directory (~/.tienda), creating it
// if needed.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".tienda")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

// Load reads configuration from the given path. A missing file is not
// an error: defaults plus environment overrides are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.API.AuthBaseURL == "" {
		cfg.API.AuthBaseURL = cfg.API.BaseURL
	}
	return cfg, nil
}

// LoadDefault loads ~/.tienda/config.yaml.
func LoadDefault() (*Config, error) {
	dir, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, "config.yaml"))
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TIENDA_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TIENDA_AUTH_URL"); v != "" {
		c.API.AuthBaseURL = v
	}
	if v := os.Getenv("TIENDA_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv("TIENDA_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("TIENDA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// RequestTimeout parses API.Timeout, falling back to 15s on bad input.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Save writes the configuration to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
