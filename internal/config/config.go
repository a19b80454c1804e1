// Package config holds server configuration: built-in defaults, overridden
// by an optional YAML file, overridden in turn by command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the TeamPlan server.
type Config struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json
	DBPath    string `yaml:"db_path"`    // SQLite path (":memory:" for testing)

	Auth      AuthConfig      `yaml:"auth"`
	Allocator AllocatorConfig `yaml:"allocator"`
}

// AuthConfig controls session token issuance and verification.
type AuthConfig struct {
	// Secret is the HS256 signing key for session tokens. Empty disables
	// authentication (development mode: requests carry an org id header).
	Secret string `yaml:"secret"`

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// AllocatorConfig tunes the auto-assignment run.
type AllocatorConfig struct {
	// ApplyAllocationPercent caps a shared resource's usable capacity at
	// its contractually unallocated share before subtracting consumed
	// hours. Off by default: availability is capacity minus consumed,
	// matching the documented allocator behavior.
	ApplyAllocationPercent bool `yaml:"apply_allocation_percent"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
