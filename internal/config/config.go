package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shamal/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// AniDB contains configuration for the AniDB title dump and HTTP API.
type AniDB struct {
	TitlesURL     string `toml:"titles_url"`
	APIURL        string `toml:"api_url"`
	ClientName    string `toml:"client_name"`
	ClientVersion int    `toml:"client_version"`
	UserAgent     string `toml:"user_agent"`
	// RequestIntervalMS is the minimum spacing between outbound requests.
	RequestIntervalMS int `toml:"request_interval_ms"`
	// InterRequestDelayMS is an extra pause taken after each rate-limiter slot.
	InterRequestDelayMS   int `toml:"inter_request_delay_ms"`
	FreshnessWindowDays   int `toml:"freshness_window_days"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Metadata contains title localisation and matching settings.
type Metadata struct {
	TitlePreference   string  `toml:"title_preference"`
	PreferredLanguage string  `toml:"preferred_language"`
	MinSimilarity     float64 `toml:"min_similarity"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Shamal.
//
// Configuration sections by subsystem:
//   - Paths: document cache and log directories
//   - AniDB: remote endpoints, client registration, request cadence, freshness
//   - Metadata: title preference, preferred language, match threshold
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	AniDB    AniDB    `toml:"anidb"`
	Metadata Metadata `toml:"metadata"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shamal/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shamal.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AniDBCacheDir returns the directory holding cached AniDB documents.
func (c *Config) AniDBCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "anidb")
}

// FreshnessWindow converts freshness_window_days into a duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.AniDB.FreshnessWindowDays) * 24 * time.Hour
}

// RequestInterval converts request_interval_ms into a duration.
func (c *Config) RequestInterval() time.Duration {
	return time.Duration(c.AniDB.RequestIntervalMS) * time.Millisecond
}

// InterRequestDelay converts inter_request_delay_ms into a duration.
func (c *Config) InterRequestDelay() time.Duration {
	return time.Duration(c.AniDB.InterRequestDelayMS) * time.Millisecond
}

// RequestTimeout converts request_timeout_seconds into a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.AniDB.RequestTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
