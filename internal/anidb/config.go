package anidb

import (
	"errors"
	"log/slog"
	"path/filepath"

	"shamal/internal/anidb/episodes"
	"shamal/internal/anidb/httpapi"
	"shamal/internal/config"
	"shamal/internal/ratelimit"
)

// NewFromConfig builds a Provider that talks to AniDB over HTTP using the
// application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, errors.New("anidb: config is required")
	}
	pref, err := episodes.ParsePreference(cfg.Metadata.TitlePreference)
	if err != nil {
		return nil, err
	}
	client, err := httpapi.New(
		cfg.AniDB.TitlesURL,
		cfg.AniDB.APIURL,
		cfg.AniDB.ClientName,
		cfg.AniDB.ClientVersion,
		httpapi.WithUserAgent(cfg.AniDB.UserAgent),
		httpapi.WithTimeout(cfg.RequestTimeout()),
	)
	if err != nil {
		return nil, err
	}
	return New(Options{
		CacheDir:          filepath.Clean(cfg.AniDBCacheDir()),
		Source:            client,
		Limiter:           ratelimit.New(cfg.RequestInterval()),
		InterRequestDelay: cfg.InterRequestDelay(),
		FreshnessWindow:   cfg.FreshnessWindow(),
		TitlePreference:   pref,
		PreferredLanguage: cfg.Metadata.PreferredLanguage,
		MinSimilarity:     cfg.Metadata.MinSimilarity,
		Logger:            logger,
	})
}
