package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigDirName  = ".plausctl"
	ConfigFileName = "config.yaml"

	EnvAPIKey  = "PLAUSIBLE_API_KEY"
	EnvSiteID  = "PLAUSIBLE_SITE_ID"
	EnvBaseURL = "PLAUSIBLE_BASE_URL"
)

// Manager reads and writes configuration rooted at a directory. Tests
// construct one against a temp directory instead of the user home.
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// DefaultManager roots the manager at ~/.plausctl.
func DefaultManager() (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewManager(filepath.Join(homeDir, ConfigDirName)), nil
}

// Dir returns the configuration root directory.
func (m *Manager) Dir() string {
	return m.dir
}

// ConfigPath returns the full path to the config file.
func (m *Manager) ConfigPath() string {
	return filepath.Join(m.dir, ConfigFileName)
}

// EnsureDir creates the config directory if it doesn't exist.
func (m *Manager) EnsureDir() error {
	return os.MkdirAll(m.dir, 0700)
}

// Load reads the configuration file and applies environment overrides.
// A missing file yields an empty config; PLAUSIBLE_API_KEY,
// PLAUSIBLE_SITE_ID and PLAUSIBLE_BASE_URL always win over file values.
// A .env file in the working directory is honored when present.
func (m *Manager) Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	data, err := os.ReadFile(m.ConfigPath())
	switch {
	case os.IsNotExist(err):
		cfg.CreatedAt = time.Now()
		cfg.UpdatedAt = time.Now()
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvSiteID); v != "" {
		cfg.SiteID = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}

	return cfg, nil
}

// Save writes the configuration file with user-only permissions.
func (m *Manager) Save(cfg *AppConfig) error {
	if err := m.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg.UpdatedAt = time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(m.ConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetActiveSite records the active site profile name.
func (m *Manager) SetActiveSite(name string) error {
	cfg, err := m.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ActiveSite = name
	return m.Save(cfg)
}
