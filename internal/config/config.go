// Package config loads WorkNest client configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values.
const (
	identityURLVar = "WORKNEST_IDENTITY_URL"
	projectURLVar  = "WORKNEST_PROJECT_URL"
	storageURLVar  = "WORKNEST_STORAGE_URL"
	credsFileVar   = "WORKNEST_CREDENTIALS_FILE"
	logLevelVar    = "WORKNEST_LOG_LEVEL"
)

// Config holds the client's runtime configuration.
type Config struct {
	// IdentityURL is the base URL of the identity service.
	IdentityURL string `yaml:"identityUrl"`
	// ProjectURL is the base URL of the project service.
	ProjectURL string `yaml:"projectUrl"`
	// StorageURL is the base URL of the storage service.
	StorageURL string `yaml:"storageUrl"`
	// CredentialsFile is where the session's token pair is persisted.
	CredentialsFile string `yaml:"credentialsFile"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"logLevel"`
	// RequestTimeout bounds each backend round-trip.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// DefaultConfig returns a Config with local development defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		IdentityURL:     "http://localhost:8081",
		ProjectURL:      "http://localhost:8082",
		StorageURL:      "http://localhost:8083",
		CredentialsFile: filepath.Join(home, ".worknest", "credentials.json"),
		LogLevel:        "info",
		RequestTimeout:  30 * time.Second,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".worknest.yaml")
}

// Load reads the config file at path (defaults apply for a missing file),
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env only.
	case err != nil:
		return nil, fmt.Errorf("config.Load read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config.Load parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.IdentityURL = getEnv(identityURLVar, c.IdentityURL)
	c.ProjectURL = getEnv(projectURLVar, c.ProjectURL)
	c.StorageURL = getEnv(storageURLVar, c.StorageURL)
	c.CredentialsFile = getEnv(credsFileVar, c.CredentialsFile)
	c.LogLevel = getEnv(logLevelVar, c.LogLevel)
}

func (c *Config) validate() error {
	if c.IdentityURL == "" {
		return fmt.Errorf("config: identityUrl is required")
	}
	if c.CredentialsFile == "" {
		return fmt.Errorf("config: credentialsFile is required")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
