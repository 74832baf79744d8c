// Package site manages named site profiles: a domain plus the API key
// that can read it. Switching profiles changes which site queries run
// against by default.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"plausctl/internal/config"
)

const (
	SitesDirName   = "sites"
	ProfileFileExt = ".yaml"
	maxProfileName = 50
)

var validProfileName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Profile is one saved site configuration.
type Profile struct {
	Name      string    `json:"name" yaml:"name"`
	Domain    string    `json:"domain" yaml:"domain"`
	APIKey    string    `json:"api_key" yaml:"api_key"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	LastUsed  time.Time `json:"last_used" yaml:"last_used"`
}

// Manager stores profiles under <config dir>/sites, one YAML file each.
type Manager struct {
	cfg *config.Manager
}

// NewManager creates a profile manager over the given config root.
func NewManager(cfg *config.Manager) *Manager {
	return &Manager{cfg: cfg}
}

// IsValidName validates a profile name.
func IsValidName(name string) bool {
	return name != "" && len(name) <= maxProfileName && validProfileName.MatchString(name)
}

func (m *Manager) dir() string {
	return filepath.Join(m.cfg.Dir(), SitesDirName)
}

func (m *Manager) path(name string) (string, error) {
	if !IsValidName(name) {
		return "", fmt.Errorf("invalid site profile name: must contain only letters, numbers, underscores, and hyphens (max %d chars)", maxProfileName)
	}
	return filepath.Join(m.dir(), name+ProfileFileExt), nil
}

// Exists checks whether a profile file exists.
func (m *Manager) Exists(name string) (bool, error) {
	path, err := m.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Load reads a profile from disk.
func (m *Manager) Load(name string) (*Profile, error) {
	path, err := m.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("site profile '%s' does not exist", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read site profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse site profile: %w", err)
	}
	return &profile, nil
}

// Save writes a profile with user-only permissions; the file holds an
// API key.
func (m *Manager) Save(profile *Profile) error {
	path, err := m.path(profile.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir(), 0700); err != nil {
		return fmt.Errorf("failed to create sites directory: %w", err)
	}

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal site profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write site profile: %w", err)
	}
	return nil
}

// Create validates and saves a new profile.
func (m *Manager) Create(name, domain, apiKey string) error {
	if !IsValidName(name) {
		return fmt.Errorf("invalid site profile name: must contain only letters, numbers, underscores, and hyphens (max %d chars)", maxProfileName)
	}
	if strings.TrimSpace(domain) == "" {
		return fmt.Errorf("site domain is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("API key is required")
	}

	exists, err := m.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("site profile '%s' already exists", name)
	}

	return m.Save(&Profile{
		Name:      name,
		Domain:    strings.TrimSpace(domain),
		APIKey:    strings.TrimSpace(apiKey),
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
	})
}

// Delete removes a profile; if it was active, the active marker is
// cleared from the global config.
func (m *Manager) Delete(name string) error {
	path, err := m.path(name)
	if err != nil {
		return err
	}

	exists, err := m.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("site profile '%s' does not exist", name)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete site profile: %w", err)
	}

	cfg, err := m.cfg.Load()
	if err == nil && cfg.ActiveSite == name {
		m.cfg.SetActiveSite("")
	}
	return nil
}

// List returns all saved profiles, skipping unreadable files.
func (m *Manager) List() ([]Profile, error) {
	entries, err := os.ReadDir(m.dir())
	if os.IsNotExist(err) {
		return []Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sites directory: %w", err)
	}

	var profiles []Profile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ProfileFileExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ProfileFileExt)
		profile, err := m.Load(name)
		if err != nil {
			continue
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

// Use marks a profile active and touches its last-used timestamp.
func (m *Manager) Use(name string) error {
	profile, err := m.Load(name)
	if err != nil {
		return err
	}
	profile.LastUsed = time.Now()
	if err := m.Save(profile); err != nil {
		return err
	}
	return m.cfg.SetActiveSite(name)
}

// Active returns the active profile, or nil when none is set.
func (m *Manager) Active() (*Profile, error) {
	cfg, err := m.cfg.Load()
	if err != nil {
		return nil, err
	}
	if cfg.ActiveSite == "" {
		return nil, nil
	}
	return m.Load(cfg.ActiveSite)
}
