package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultUpdateURL is the update_url carried by store mods in their manifest.
const DefaultUpdateURL = "https://api.gx.me/store/mods/update"

const (
	defaultDebounce    = 120 * time.Millisecond
	defaultLockRelease = 100 * time.Millisecond
)

// Config holds global application settings
type Config struct {
	ExtensionsDir  string        `yaml:"extensions_dir"`
	UpdateURL      string        `yaml:"update_url"`
	InventoryFile  string        `yaml:"inventory_file"`
	Debounce       time.Duration `yaml:"-"`
	DebounceStr    string        `yaml:"debounce"`
	LockRelease    time.Duration `yaml:"-"`
	LockReleaseStr string        `yaml:"lock_release"`
	Locale         string        `yaml:"locale"`
	Keybindings    string        `yaml:"keybindings"`
	MetricsAddr    string        `yaml:"metrics_addr,omitempty"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		UpdateURL:   DefaultUpdateURL,
		Debounce:    defaultDebounce,
		LockRelease: defaultLockRelease,
		Locale:      "und",
		Keybindings: "vim",
	}
}

// Load reads config.yaml from the given directory
func Load(configDir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(configDir, "config.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads configuration from an explicit file. A missing file is
// reported with an error wrapping os.ErrNotExist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DebounceStr != "" {
		if cfg.Debounce, err = parsePositiveDuration("debounce", cfg.DebounceStr); err != nil {
			return nil, err
		}
	}
	if cfg.LockReleaseStr != "" {
		if cfg.LockRelease, err = parsePositiveDuration("lock_release", cfg.LockReleaseStr); err != nil {
			return nil, err
		}
	}
	if cfg.UpdateURL == "" {
		cfg.UpdateURL = DefaultUpdateURL
	}
	cfg.ExtensionsDir = expandHome(cfg.ExtensionsDir)
	cfg.InventoryFile = expandHome(cfg.InventoryFile)

	return cfg, nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	c.DebounceStr = c.Debounce.String()
	c.LockReleaseStr = c.LockRelease.String()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func parsePositiveDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, s)
	}
	return d, nil
}
