package config

const (
	defaultCacheDir              = "~/.cache/shamal"
	defaultLogDir                = "~/.local/share/shamal/logs"
	defaultTitlesURL             = "https://anidb.net/api/anime-titles.xml.gz"
	defaultAPIURL                = "http://api.anidb.net:9001/httpapi"
	defaultClientName            = "shamal"
	defaultClientVersion         = 1
	defaultUserAgent             = "shamal/dev"
	defaultRequestIntervalMS     = 2000
	defaultInterRequestDelayMS   = 0
	defaultFreshnessWindowDays   = 7
	defaultRequestTimeoutSeconds = 30
	defaultTitlePreference       = TitlePreferenceLocalized
	defaultPreferredLanguage     = "en"
	defaultMinSimilarity         = 0.8
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Title preference values accepted in metadata.title_preference.
const (
	TitlePreferenceLocalized      = "localized"
	TitlePreferenceJapanese       = "japanese"
	TitlePreferenceJapaneseRomaji = "japanese_romaji"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		AniDB: AniDB{
			TitlesURL:             defaultTitlesURL,
			APIURL:                defaultAPIURL,
			ClientName:            defaultClientName,
			ClientVersion:         defaultClientVersion,
			UserAgent:             defaultUserAgent,
			RequestIntervalMS:     defaultRequestIntervalMS,
			InterRequestDelayMS:   defaultInterRequestDelayMS,
			FreshnessWindowDays:   defaultFreshnessWindowDays,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Metadata: Metadata{
			TitlePreference:   defaultTitlePreference,
			PreferredLanguage: defaultPreferredLanguage,
			MinSimilarity:     defaultMinSimilarity,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
