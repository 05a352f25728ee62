// ABOUTME: Labtrack configuration management with backend selection.
// ABOUTME: Handles settings, default profile, and the storage backend factory.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viziai/labtrack/internal/charm"
	"github.com/viziai/labtrack/internal/storage"
)

// Config stores labtrack configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage. SQLite puts
	// labtrack.db here; the ingest cache lives in a cache/ subfolder.
	// Supports ~ expansion. Defaults to ~/.local/share/labtrack.
	DataDir string `json:"data_dir,omitempty"`

	// DefaultProfile is the profile used when --profile is not given.
	DefaultProfile string `json:"default_profile,omitempty"`

	// MaxDeviationPct overrides the validator's deviation threshold.
	MaxDeviationPct float64 `json:"max_deviation_pct,omitempty"`

	// GroupsFile points to a custom metric correction table (JSON).
	GroupsFile string `json:"groups_file,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return "sqlite"
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDefaultProfile returns the default profile name.
func (c *Config) GetDefaultProfile() string {
	if c.DefaultProfile == "" {
		return "default"
	}
	return c.DefaultProfile
}

// CacheDir returns the directory for the ingest file cache.
func (c *Config) CacheDir() string {
	return filepath.Join(c.GetDataDir(), "cache")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the
// configured backend.
func (c *Config) OpenStorage() (storage.Repository, error) {
	switch backend := c.GetBackend(); backend {
	case "sqlite":
		dbPath := filepath.Join(c.GetDataDir(), "labtrack.db")
		return storage.Open(dbPath)
	case "charm":
		return charm.Open()
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// OpenBackend creates a Repository for an explicitly named backend,
// used by the migrate command.
func (c *Config) OpenBackend(backend string) (storage.Repository, error) {
	cfg := *c
	cfg.Backend = backend
	return cfg.OpenStorage()
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "labtrack", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
