package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shamal/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".cache", "shamal")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if cfg.AniDBCacheDir() != filepath.Join(wantCache, "anidb") {
		t.Fatalf("unexpected anidb cache dir: %q", cfg.AniDBCacheDir())
	}
	if cfg.FreshnessWindow() != 7*24*time.Hour {
		t.Fatalf("expected 7 day freshness window, got %v", cfg.FreshnessWindow())
	}
	if cfg.RequestInterval() != 2*time.Second {
		t.Fatalf("expected 2s request interval, got %v", cfg.RequestInterval())
	}
	if cfg.Metadata.TitlePreference != config.TitlePreferenceLocalized {
		t.Fatalf("unexpected title preference: %q", cfg.Metadata.TitlePreference)
	}
	if cfg.Metadata.PreferredLanguage != "en" {
		t.Fatalf("unexpected preferred language: %q", cfg.Metadata.PreferredLanguage)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := `
[paths]
cache_dir = "~/anime-cache"

[anidb]
client_name = "myclient"
freshness_window_days = 3
inter_request_delay_ms = 250

[metadata]
title_preference = "Japanese-Romaji"
preferred_language = "de"
min_similarity = 0.9

[logging]
format = "JSON"
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, "anime-cache") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.AniDB.ClientName != "myclient" {
		t.Fatalf("unexpected client name: %q", cfg.AniDB.ClientName)
	}
	if cfg.FreshnessWindow() != 72*time.Hour {
		t.Fatalf("unexpected freshness window: %v", cfg.FreshnessWindow())
	}
	if cfg.InterRequestDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected inter-request delay: %v", cfg.InterRequestDelay())
	}
	if cfg.Metadata.TitlePreference != config.TitlePreferenceJapaneseRomaji {
		t.Fatalf("expected normalized title preference, got %q", cfg.Metadata.TitlePreference)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.AniDB.TitlesURL != config.Default().AniDB.TitlesURL {
		t.Fatalf("expected default titles url, got %q", cfg.AniDB.TitlesURL)
	}
}

func TestLoadUsesEnvClientName(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHAMAL_ANIDB_CLIENT", "envclient")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AniDB.ClientName != "envclient" {
		t.Fatalf("expected client name from env, got %q", cfg.AniDB.ClientName)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"preference", func(c *config.Config) { c.Metadata.TitlePreference = "klingon" }, "metadata.title_preference"},
		{"similarity", func(c *config.Config) { c.Metadata.MinSimilarity = 1.5 }, "metadata.min_similarity"},
		{"freshness", func(c *config.Config) { c.AniDB.FreshnessWindowDays = 0 }, "anidb.freshness_window_days"},
		{"titles url", func(c *config.Config) { c.AniDB.TitlesURL = "not a url" }, "anidb.titles_url"},
		{"delay", func(c *config.Config) { c.AniDB.InterRequestDelayMS = -1 }, "anidb.inter_request_delay_ms"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[anidb]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestCreateSampleProducesValidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.AniDB.FreshnessWindowDays != 7 {
		t.Fatalf("unexpected sample freshness window: %d", decoded.AniDB.FreshnessWindowDays)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
