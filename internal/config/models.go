package config

import "time"

// AppConfig holds the global tool configuration. SiteID is the default
// site domain, BaseURL overrides the hosted instance for self-hosted
// deployments, and ActiveSite names the active site profile.
type AppConfig struct {
	APIKey     string    `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	SiteID     string    `json:"site_id,omitempty" yaml:"site_id,omitempty"`
	BaseURL    string    `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	ActiveSite string    `json:"active_site,omitempty" yaml:"active_site,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}
