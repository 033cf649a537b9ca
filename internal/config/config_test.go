package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.SessionLimit != 20 {
		t.Errorf("SessionLimit = %d, want 20", cfg.General.SessionLimit)
	}
	if Exists() {
		t.Error("Exists() = true for missing file")
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	want := Config{
		General: GeneralConfig{
			ClaudeProjectsDir: "/custom/projects",
			StatisticsDir:     "/custom/stats",
			TZOffsetHours:     -5.5,
			SessionLimit:      50,
		},
	}
	if err := Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Error("Exists() = false after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("roundtrip = %+v, want %+v", got, want)
	}
}

func TestDirResolution(t *testing.T) {
	t.Setenv("AI_USAGE_LOG_PATH", "/data/usage")

	var cfg Config
	if got := cfg.StatisticsDir(); got != filepath.Join("/data/usage", "statistics") {
		t.Errorf("StatisticsDir = %q", got)
	}

	cfg.General.StatisticsDir = "/elsewhere"
	if got := cfg.StatisticsDir(); got != "/elsewhere" {
		t.Errorf("StatisticsDir override = %q", got)
	}

	cfg.General.ClaudeProjectsDir = "/claude"
	if got := cfg.ProjectsDir(); got != "/claude" {
		t.Errorf("ProjectsDir override = %q", got)
	}
}

func TestConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	want := filepath.Join("/xdg", "ai-usage-log", "config.toml")
	if got := ConfigPath(); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}
