package testsupport

import (
	"path/filepath"
	"testing"

	"shamal/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Request throttling is disabled so tests never sleep on the limiter.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.AniDB.RequestIntervalMS = 0
	cfgVal.AniDB.InterRequestDelayMS = 0
	cfgVal.AniDB.UserAgent = "shamal-test/1.0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAniDBServer points the titles and API endpoints at a test server.
func WithAniDBServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AniDB.TitlesURL = baseURL + "/api/anime-titles.xml.gz"
		b.cfg.AniDB.APIURL = baseURL + "/httpapi"
	}
}

// WithTitlePreference sets the metadata title preference and language.
func WithTitlePreference(pref, lang string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.TitlePreference = pref
		b.cfg.Metadata.PreferredLanguage = lang
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
