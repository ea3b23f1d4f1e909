package titles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"shamal/internal/doccache"
	"shamal/internal/logging"
)

// CacheKey is the document cache key of the title dump.
const CacheKey = "titles.xml"

// DefaultMaxAge is how long a downloaded title dump is trusted.
const DefaultMaxAge = 7 * 24 * time.Hour

type snapshot struct {
	index   *Index
	path    string
	modTime time.Time
	size    int64
}

// Catalog keeps an Index in sync with the cached title dump. The index is
// rebuilt whenever the file on disk changes and shared read-only otherwise.
type Catalog struct {
	cache   *doccache.Cache
	fetch   doccache.FetchFunc
	maxAge  time.Duration
	logger  *slog.Logger
	current atomic.Pointer[snapshot]
	load    sync.Mutex
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithMaxAge overrides the freshness window of the title dump.
func WithMaxAge(d time.Duration) CatalogOption {
	return func(c *Catalog) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog creates a catalog that downloads the dump with fetch.
func NewCatalog(cache *doccache.Cache, fetch doccache.FetchFunc, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		cache:  cache,
		fetch:  fetch,
		maxAge: DefaultMaxAge,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "titles")
	return c
}

// Index returns the current index, downloading the dump if the cached copy
// is missing or stale.
func (c *Catalog) Index(ctx context.Context) (*Index, error) {
	return c.index(ctx, c.maxAge)
}

// Refresh forces a new download and returns the rebuilt index. If the
// download fails the previous copy stays in use.
func (c *Catalog) Refresh(ctx context.Context) (*Index, error) {
	return c.index(ctx, 0)
}

// Resolve maps a free-text name to the best matching series.
func (c *Catalog) Resolve(ctx context.Context, name string, minSimilarity float64) (Match, bool, error) {
	ix, err := c.Index(ctx)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := ix.Resolve(name, minSimilarity)
	return m, ok, nil
}

func (c *Catalog) index(ctx context.Context, window time.Duration) (*Index, error) {
	path, err := c.cache.EnsureFresh(ctx, CacheKey, c.fetch, window)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat title dump: %w", err)
	}
	if snap := c.current.Load(); snap.matches(path, info) {
		return snap.index, nil
	}

	c.load.Lock()
	defer c.load.Unlock()
	if snap := c.current.Load(); snap.matches(path, info) {
		return snap.index, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open title dump: %w", err)
	}
	defer file.Close()

	started := time.Now()
	ix, err := Parse(file)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	c.current.Store(&snapshot{index: ix, path: path, modTime: info.ModTime(), size: info.Size()})

	c.logger.DebugContext(ctx, "title index loaded",
		logging.Int("series", ix.SeriesCount()),
		logging.Int("titles", ix.Len()),
		logging.Duration("elapsed", time.Since(started)),
	)
	if ix.Skipped() > 0 {
		logging.WarnWithContext(ctx, c.logger, "title dump contained unusable records", "titles_records_skipped",
			logging.Int("skipped", ix.Skipped()),
			logging.String(logging.FieldErrorHint, "records without a series id or name are ignored"),
			logging.String(logging.FieldImpact, "some titles cannot be matched"),
		)
	}
	return ix, nil
}

func (s *snapshot) matches(path string, info os.FileInfo) bool {
	return s != nil && s.path == path && s.modTime.Equal(info.ModTime()) && s.size == info.Size()
}

// ParseError reports a cached title dump that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse title dump %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
