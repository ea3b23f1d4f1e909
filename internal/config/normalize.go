package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAniDB()
	c.normalizeMetadata()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAniDB() {
	c.AniDB.ClientName = strings.TrimSpace(c.AniDB.ClientName)
	if value, ok := os.LookupEnv("SHAMAL_ANIDB_CLIENT"); ok && strings.TrimSpace(value) != "" {
		c.AniDB.ClientName = strings.TrimSpace(value)
	}
	if c.AniDB.ClientName == "" {
		c.AniDB.ClientName = defaultClientName
	}
	c.AniDB.TitlesURL = strings.TrimSpace(c.AniDB.TitlesURL)
	if c.AniDB.TitlesURL == "" {
		c.AniDB.TitlesURL = defaultTitlesURL
	}
	c.AniDB.APIURL = strings.TrimSpace(c.AniDB.APIURL)
	if c.AniDB.APIURL == "" {
		c.AniDB.APIURL = defaultAPIURL
	}
	c.AniDB.UserAgent = strings.TrimSpace(c.AniDB.UserAgent)
	if c.AniDB.UserAgent == "" {
		c.AniDB.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeMetadata() {
	pref := strings.ToLower(strings.TrimSpace(c.Metadata.TitlePreference))
	pref = strings.NewReplacer("-", "_", " ", "_").Replace(pref)
	switch pref {
	case "":
		pref = defaultTitlePreference
	case "romaji":
		pref = TitlePreferenceJapaneseRomaji
	}
	c.Metadata.TitlePreference = pref

	c.Metadata.PreferredLanguage = strings.TrimSpace(c.Metadata.PreferredLanguage)
	if c.Metadata.PreferredLanguage == "" {
		c.Metadata.PreferredLanguage = defaultPreferredLanguage
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
