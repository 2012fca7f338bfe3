// Package config resolves the process-wide logging configuration:
// tool identity, durable destination and bound thresholds. Resolution
// order is explicit argument, then environment (SPILL_* variables),
// then hardcoded default, with an optional config file underneath.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bioneural/spill/internal/store"
)

// Config is the complete spill configuration.
type Config struct {
	// Tool is the emitting process's logical owner.
	Tool string `mapstructure:"tool"`
	// Dest is the durable destination path. A .db/.sqlite/.sqlite3
	// extension selects the sqlite backend; anything else the file
	// backend.
	Dest string `mapstructure:"dest"`
	// MaxBytes is the destination size at which compaction triggers.
	// Zero disables bound enforcement.
	MaxBytes int64 `mapstructure:"max_bytes"`
	// Keep is the number of rotated generations to retain (file
	// backend only).
	Keep int `mapstructure:"keep"`
	// Compress gzips rotated generations (file backend only).
	Compress bool `mapstructure:"compress"`
}

// Default returns a Config with the hardcoded defaults.
func Default() *Config {
	return &Config{
		Tool:     "unknown",
		Dest:     DefaultDest(),
		MaxBytes: 1 << 20, // 1 MiB
		Keep:     3,
		Compress: false,
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("tool", defaults.Tool)
	viper.SetDefault("dest", defaults.Dest)
	viper.SetDefault("max_bytes", defaults.MaxBytes)
	viper.SetDefault("keep", defaults.Keep)
	viper.SetDefault("compress", defaults.Compress)
}

// Load reads the configuration from viper into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Bounds returns the bound-enforcement settings as a store config.
func (c *Config) Bounds() store.BoundConfig {
	return store.BoundConfig{
		MaxBytes: c.MaxBytes,
		Keep:     c.Keep,
		Compress: c.Compress,
	}
}

// StateDir returns the directory holding the default destination.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "spill")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spill"
	}
	return filepath.Join(home, ".local", "state", "spill")
}

// DefaultDest returns the default durable destination path.
func DefaultDest() string {
	return filepath.Join(StateDir(), "spill.log")
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spill")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spill"
	}
	return filepath.Join(home, ".config", "spill")
}
