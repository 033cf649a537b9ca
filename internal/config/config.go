// Package config loads and saves the TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all ai-usage-log configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	// ClaudeProjectsDir overrides ~/.claude/projects.
	ClaudeProjectsDir string `toml:"claude_projects_dir,omitempty"`
	// StatisticsDir overrides <base>/statistics for cached session stats.
	StatisticsDir string `toml:"statistics_dir,omitempty"`
	// TZOffsetHours shifts surfaced timestamps from UTC (fractional ok).
	TZOffsetHours float64 `toml:"tz_offset_hours"`
	// SessionLimit caps session listings.
	SessionLimit int `toml:"session_limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			SessionLimit: 20,
		},
	}
}

// BasePath returns the usage-log base directory, honoring AI_USAGE_LOG_PATH.
func BasePath() string {
	if p := os.Getenv("AI_USAGE_LOG_PATH"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Documents", "ai-usage")
}

// ProjectsDir resolves the Claude projects directory.
func (c Config) ProjectsDir() string {
	if c.General.ClaudeProjectsDir != "" {
		return c.General.ClaudeProjectsDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

// StatisticsDir resolves the cached-stats directory.
func (c Config) StatisticsDir() string {
	if c.General.StatisticsDir != "" {
		return c.General.StatisticsDir
	}
	return filepath.Join(BasePath(), "statistics")
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ai-usage-log")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ai-usage-log")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
