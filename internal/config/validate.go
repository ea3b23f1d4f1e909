package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAniDB(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAniDB() error {
	for key, raw := range map[string]string{
		"anidb.titles_url": c.AniDB.TitlesURL,
		"anidb.api_url":    c.AniDB.APIURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) url, got %q", key, raw)
		}
	}
	if c.AniDB.ClientVersion <= 0 {
		return errors.New("anidb.client_version must be positive")
	}
	if c.AniDB.FreshnessWindowDays <= 0 {
		return errors.New("anidb.freshness_window_days must be positive")
	}
	if c.AniDB.RequestTimeoutSeconds <= 0 {
		return errors.New("anidb.request_timeout_seconds must be positive")
	}
	if c.AniDB.RequestIntervalMS < 0 {
		return errors.New("anidb.request_interval_ms must not be negative")
	}
	if c.AniDB.InterRequestDelayMS < 0 {
		return errors.New("anidb.inter_request_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.TitlePreference {
	case TitlePreferenceLocalized, TitlePreferenceJapanese, TitlePreferenceJapaneseRomaji:
	default:
		return fmt.Errorf("metadata.title_preference must be one of %q, %q, %q; got %q",
			TitlePreferenceLocalized, TitlePreferenceJapanese, TitlePreferenceJapaneseRomaji, c.Metadata.TitlePreference)
	}
	if c.Metadata.MinSimilarity <= 0 || c.Metadata.MinSimilarity > 1 {
		return errors.New("metadata.min_similarity must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error; got %q", c.Logging.Level)
	}
	return nil
}
