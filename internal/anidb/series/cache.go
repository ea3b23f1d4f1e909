package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"shamal/internal/doccache"
	"shamal/internal/logging"
)

const (
	// DefaultMaxAge is how long a downloaded anime document is trusted.
	DefaultMaxAge = 7 * 24 * time.Hour
	// DefaultMemoSize bounds the number of parsed documents kept in memory.
	DefaultMemoSize = 128
)

// Fetcher downloads the anime document of one series.
type Fetcher func(ctx context.Context, seriesID string) ([]byte, error)

type memoEntry struct {
	doc     *Document
	modTime time.Time
	size    int64
}

// Cache serves parsed anime documents backed by a document cache.
type Cache struct {
	docs   *doccache.Cache
	fetch  Fetcher
	maxAge time.Duration
	memo   *lru.Cache[string, memoEntry]
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*cacheConfig)

type cacheConfig struct {
	maxAge   time.Duration
	memoSize int
	logger   *slog.Logger
}

// WithMaxAge overrides the freshness window of anime documents.
func WithMaxAge(d time.Duration) Option {
	return func(c *cacheConfig) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithMemoSize sets how many parsed documents are kept in memory.
func WithMemoSize(n int) Option {
	return func(c *cacheConfig) {
		if n > 0 {
			c.memoSize = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *cacheConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a series cache.
func NewCache(docs *doccache.Cache, fetch Fetcher, opts ...Option) (*Cache, error) {
	if docs == nil {
		return nil, errors.New("series: document cache is required")
	}
	if fetch == nil {
		return nil, errors.New("series: fetcher is required")
	}
	cfg := cacheConfig{maxAge: DefaultMaxAge, memoSize: DefaultMemoSize, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	memo, err := lru.New[string, memoEntry](cfg.memoSize)
	if err != nil {
		return nil, fmt.Errorf("create series memo: %w", err)
	}
	return &Cache{
		docs:   docs,
		fetch:  fetch,
		maxAge: cfg.maxAge,
		memo:   memo,
		logger: logging.NewComponentLogger(cfg.logger, "series"),
	}, nil
}

// CacheKey returns the document cache key for a series. Series ids are
// decimal AniDB ids.
func CacheKey(seriesID string) (string, error) {
	id := strings.TrimSpace(seriesID)
	if id == "" {
		return "", errors.New("series id is empty")
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return "", fmt.Errorf("series id %q is not numeric", seriesID)
		}
	}
	return "series/" + id + "/series.xml", nil
}

// EnsureFresh makes sure the anime document of seriesID is cached and fresh
// and returns its path.
func (c *Cache) EnsureFresh(ctx context.Context, seriesID string) (string, error) {
	key, err := CacheKey(seriesID)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(seriesID)
	return c.docs.EnsureFresh(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, id)
	}, c.maxAge)
}

// Get returns the parsed anime document of seriesID. Parsed documents are
// reused until the file on disk changes.
func (c *Cache) Get(ctx context.Context, seriesID string) (*Document, error) {
	path, err := c.EnsureFresh(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(seriesID)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat series document: %w", err)
	}
	if cached, ok := c.memo.Get(id); ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read series document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, &ParseError{SeriesID: id, Path: path, Err: err}
	}
	if doc.SeriesID != id {
		logging.WarnWithContext(ctx, c.logger, "anime document id does not match request", "series_id_mismatch",
			logging.String(logging.FieldSeriesID, id),
			logging.String("document_id", doc.SeriesID),
			logging.String(logging.FieldErrorHint, "delete the cached document to force a new download"),
			logging.String(logging.FieldImpact, "metadata may belong to another series"),
		)
	}
	c.memo.Add(id, memoEntry{doc: doc, modTime: info.ModTime(), size: info.Size()})
	c.logger.DebugContext(ctx, "series document parsed",
		logging.String(logging.FieldSeriesID, id),
		logging.Int("episodes", len(doc.keys)),
	)
	return doc, nil
}

// ParseError reports a cached anime document that could not be decoded.
type ParseError struct {
	SeriesID string
	Path     string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse series %s document %s: %v", e.SeriesID, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
