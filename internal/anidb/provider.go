package anidb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shamal/internal/anidb/episodes"
	"shamal/internal/anidb/identity"
	"shamal/internal/anidb/series"
	"shamal/internal/anidb/titles"
	"shamal/internal/doccache"
	"shamal/internal/logging"
	"shamal/internal/ratelimit"
)

// Source downloads AniDB documents.
type Source interface {
	FetchTitles(ctx context.Context) ([]byte, error)
	FetchSeries(ctx context.Context, seriesID string) ([]byte, error)
}

// Options configures a Provider.
type Options struct {
	// CacheDir holds titles.xml and series/<id>/series.xml.
	CacheDir string
	Source   Source
	// Limiter is shared by every download. Nil means DefaultInterval.
	Limiter           *ratelimit.Limiter
	InterRequestDelay time.Duration
	FreshnessWindow   time.Duration
	TitlePreference   episodes.Preference
	PreferredLanguage string
	MinSimilarity     float64
	Logger            *slog.Logger
	Clock             func() time.Time
}

// Provider answers series and episode queries.
type Provider struct {
	docs          *doccache.Cache
	catalog       *titles.Catalog
	series        *series.Cache
	preference    episodes.Preference
	language      string
	minSimilarity float64
	logger        *slog.Logger
}

// SearchResult is one ranked series for a free-text query.
type SearchResult struct {
	SeriesID     string  `json:"series_id"`
	Name         string  `json:"name"`
	MatchedTitle string  `json:"matched_title"`
	Language     string  `json:"language"`
	Score        float64 `json:"score"`
	Exact        bool    `json:"exact"`
}

// New creates a Provider.
func New(opts Options) (*Provider, error) {
	if opts.Source == nil {
		return nil, errors.New("anidb: source is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultInterval)
	}
	pref := opts.TitlePreference
	if pref == "" {
		pref = episodes.PreferLocalized
	}
	minSimilarity := opts.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = titles.DefaultMinSimilarity
	}

	docOpts := []doccache.Option{doccache.WithDelay(opts.InterRequestDelay), doccache.WithLogger(logger)}
	if opts.Clock != nil {
		docOpts = append(docOpts, doccache.WithClock(opts.Clock))
	}
	docs, err := doccache.New(opts.CacheDir, limiter, docOpts...)
	if err != nil {
		return nil, err
	}

	seriesCache, err := series.NewCache(docs, opts.Source.FetchSeries,
		series.WithMaxAge(opts.FreshnessWindow),
		series.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{
		docs: docs,
		catalog: titles.NewCatalog(docs, opts.Source.FetchTitles,
			titles.WithMaxAge(opts.FreshnessWindow),
			titles.WithLogger(logger),
		),
		series:        seriesCache,
		preference:    pref,
		language:      strings.TrimSpace(opts.PreferredLanguage),
		minSimilarity: minSimilarity,
		logger:        logging.NewComponentLogger(logger, "anidb"),
	}, nil
}

// ResolveSeriesID maps a free-text name to the best matching series id.
func (p *Provider) ResolveSeriesID(ctx context.Context, name string) (string, bool, error) {
	if strings.TrimSpace(name) == "" {
		return "", false, nil
	}
	match, ok, err := p.catalog.Resolve(ctx, name, p.minSimilarity)
	if err != nil {
		return "", false, wrapDocumentError(err)
	}
	if !ok {
		p.logger.DebugContext(ctx, "no title match", logging.String("query", name))
		return "", false, nil
	}
	p.logger.DebugContext(ctx, "title matched",
		logging.String("query", name),
		logging.String(logging.FieldSeriesID, match.SeriesID()),
		logging.String("title", match.Record.Name),
		logging.Float64("score", match.Score),
	)
	return match.SeriesID(), true, nil
}

// Search returns up to limit ranked series for query, named with the
// configured title preference.
func (p *Provider) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	ix, err := p.catalog.Index(ctx)
	if err != nil {
		return nil, wrapDocumentError(err)
	}
	matches := ix.Search(query, p.minSimilarity, limit)
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		name := m.Record.Name
		if title, ok := episodes.Localize(ix.Candidates(m.SeriesID()), p.preference, p.language); ok {
			name = title.Name
		}
		results = append(results, SearchResult{
			SeriesID:     m.SeriesID(),
			Name:         name,
			MatchedTitle: m.Record.Name,
			Language:     m.Record.Language,
			Score:        m.Score,
			Exact:        m.Exact,
		})
	}
	return results, nil
}

// GetSeries returns series metadata.
func (p *Provider) GetSeries(ctx context.Context, seriesID string) (series.Record, bool, error) {
	doc, ok, err := p.document(ctx, seriesID)
	if err != nil || !ok {
		return series.Record{}, false, err
	}
	return doc.Record(p.preference, p.language), true, nil
}

// GetEpisode returns the record of one episode, or of the range
// number..end merged into one record when end is after number. Episodes
// missing inside a range are skipped. episodeType is "" for regular episodes
// and "S" for specials.
func (p *Provider) GetEpisode(ctx context.Context, seriesID string, number int, episodeType string, end *int) (episodes.Record, bool, error) {
	special, err := parseEpisodeType(episodeType)
	if err != nil {
		return episodes.Record{}, false, err
	}
	if number < 0 {
		return episodes.Record{}, false, fmt.Errorf("episode number %d is negative", number)
	}
	doc, ok, err := p.document(ctx, seriesID)
	if err != nil || !ok {
		return episodes.Record{}, false, err
	}

	primary, ok := doc.Episode(episodes.Key(number, special))
	if !ok {
		return episodes.Record{}, false, nil
	}
	record := episodes.FromEpisode(primary, p.preference, p.language)
	if end == nil || *end <= number {
		return record, true, nil
	}

	var additional []episodes.Record
	for _, key := range doc.EpisodeKeys() {
		e, ok := doc.Episode(key)
		if !ok {
			continue
		}
		n, isSpecial, ok := e.Number()
		if !ok || isSpecial != special || n <= number || n > *end {
			continue
		}
		additional = append(additional, episodes.FromEpisode(e, p.preference, p.language))
	}
	return episodes.Merge(record, additional...), true, nil
}

// GetEpisodeByIdentity is GetEpisode for a parsed identity.
func (p *Provider) GetEpisodeByIdentity(ctx context.Context, id identity.Identity) (episodes.Record, bool, error) {
	return p.GetEpisode(ctx, id.SeriesID, id.EpisodeNumber, id.EpisodeType, id.EpisodeNumberEnd)
}

// RefreshTitles downloads the title dump regardless of its age and returns
// the number of series in the rebuilt index.
func (p *Provider) RefreshTitles(ctx context.Context) (int, error) {
	ix, err := p.catalog.Refresh(ctx)
	if err != nil {
		return 0, wrapDocumentError(err)
	}
	return ix.SeriesCount(), nil
}

// CacheStats reports the documents held on disk.
func (p *Provider) CacheStats() (doccache.Stats, error) {
	return p.docs.Stats()
}

// CachedDocument reports the cached copy of key without fetching.
func (p *Provider) CachedDocument(key string) (doccache.Entry, bool, error) {
	return p.docs.Stat(key)
}

func (p *Provider) document(ctx context.Context, seriesID string) (*series.Document, bool, error) {
	id := strings.TrimSpace(seriesID)
	if _, err := series.CacheKey(id); err != nil {
		return nil, false, fmt.Errorf("%w: %w", doccache.ErrInvalidKey, err)
	}
	doc, err := p.series.Get(ctx, id)
	if err != nil {
		if isUnknownSeries(err) {
			return nil, false, nil
		}
		return nil, false, wrapDocumentError(err)
	}
	return doc, true, nil
}

func parseEpisodeType(episodeType string) (bool, error) {
	switch strings.TrimSpace(episodeType) {
	case "":
		return false, nil
	case identity.TypeSpecial:
		return true, nil
	default:
		return false, fmt.Errorf("unknown episode type %q", episodeType)
	}
}

// ParseIdentity decodes a compound episode identity such as "123:S4-6".
func ParseIdentity(text string) (identity.Identity, error) {
	return identity.Parse(text)
}

// FormatIdentity renders an identity canonically.
func FormatIdentity(id identity.Identity) string {
	return identity.Format(id)
}
