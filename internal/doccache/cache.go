package doccache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"shamal/internal/fileutil"
	"shamal/internal/logging"
	"shamal/internal/ratelimit"
)

const defaultLockRetry = 50 * time.Millisecond

// FetchFunc retrieves the current remote copy of a document.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Entry describes a cached document on disk.
type Entry struct {
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
}

// Stats summarises the documents held by a cache.
type Stats struct {
	Dir   string `json:"dir"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

// Cache keeps documents fresh under a base directory.
type Cache struct {
	dir       string
	limiter   *ratelimit.Limiter
	delay     time.Duration
	now       func() time.Time
	lockRetry time.Duration
	logger    *slog.Logger
	group     singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithDelay adds a pause after every rate-limiter slot before the fetch runs.
func WithDelay(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithClock overrides the time source used for freshness checks and for the
// modification time stamped on refreshed files.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLockRetry sets how often a blocked refresh polls the cross-process lock.
func WithLockRetry(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.lockRetry = d
		}
	}
}

// New creates a cache rooted at dir. A nil limiter disables throttling.
func New(dir string, limiter *ratelimit.Limiter, opts ...Option) (*Cache, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("doccache: directory is required")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c := &Cache{
		dir:       trimmed,
		limiter:   limiter,
		now:       time.Now,
		lockRetry: defaultLockRetry,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "doccache")
	return c, nil
}

// Dir returns the base directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the on-disk location for key.
func (c *Cache) Path(key string) (string, error) {
	return keyPath(c.dir, key)
}

// Stat reports the cached copy for key, if any.
func (c *Cache) Stat(key string) (Entry, bool, error) {
	path, err := c.Path(key)
	if err != nil {
		return Entry{}, false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return Entry{Key: key, Path: path, Size: info.Size(), ModTime: info.ModTime()}, true, nil
}

// Stats walks the cache directory and totals document files. Lock and temp
// files are ignored.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, lockSuffix) || fileutil.IsTempFile(name) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("walk cache dir: %w", err)
	}
	return stats, nil
}

// EnsureFresh returns the path of a copy of key no older than window,
// fetching a new one when the cached file is missing or stale. A
// non-positive window forces a refetch.
//
// Concurrent callers for the same key share one refresh. Each caller stops
// waiting when its own ctx is done.
func (c *Cache) EnsureFresh(ctx context.Context, key string, fetch FetchFunc, window time.Duration) (string, error) {
	if fetch == nil {
		return "", errors.New("doccache: fetch function is required")
	}
	path, err := c.Path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fresh, _ := c.isFresh(path, window); fresh {
		return path, nil
	}

	for attempt := 0; ; attempt++ {
		ch := c.group.DoChan(key, func() (any, error) {
			return c.refresh(ctx, key, path, fetch, window)
		})
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The shared refresh ran on another caller's context. Try again
				// on ours if that caller was the one cancelled.
				if attempt == 0 && res.Shared && isContextErr(res.Err) && ctx.Err() == nil {
					continue
				}
				return "", res.Err
			}
			return res.Val.(string), nil
		}
	}
}

func (c *Cache) refresh(ctx context.Context, key, path string, fetch FetchFunc, window time.Duration) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &WriteError{Key: key, Path: path, Err: err}
	}

	lock := flock.New(path + lockSuffix)
	locked, err := lock.TryLockContext(ctx, c.lockRetry)
	if err != nil {
		if isContextErr(err) {
			return "", err
		}
		return "", fmt.Errorf("lock %s: %w", key, err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: not acquired", key)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// Another process may have refreshed while we waited for the lock.
	fresh, exists := c.isFresh(path, window)
	if fresh {
		return path, nil
	}

	reservation, err := c.limiter.Reserve(ctx)
	if err != nil {
		return "", err
	}
	if c.delay > 0 {
		if err := ratelimit.SleepWithContext(ctx, c.delay); err != nil {
			reservation.Cancel()
			return "", err
		}
	}

	c.logger.DebugContext(ctx, "fetching document", logging.String(logging.FieldCacheKey, key))
	started := time.Now()
	data, err := fetch(ctx)
	if err == nil && len(data) == 0 {
		err = errors.New("empty document")
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if exists {
			logging.WarnWithContext(ctx, c.logger, "document refresh failed; serving stale copy", "doccache_stale_served",
				logging.String(logging.FieldCacheKey, key),
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check network access; the next lookup retries the fetch"),
				logging.String(logging.FieldImpact, "results may be out of date"),
			)
			return path, nil
		}
		return "", &FetchError{Key: key, Err: err}
	}

	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", &WriteError{Key: key, Path: path, Err: err}
	}
	now := c.now()
	if err := os.Chtimes(path, now, now); err != nil {
		return "", &WriteError{Key: key, Path: path, Err: err}
	}
	c.logger.DebugContext(ctx, "document refreshed",
		logging.String(logging.FieldCacheKey, key),
		logging.Int("bytes", len(data)),
		logging.Duration("latency", time.Since(started)),
	)
	return path, nil
}

// isFresh reports whether path is within window and whether it exists.
func (c *Cache) isFresh(path string, window time.Duration) (fresh, exists bool) {
	info, err := os.Stat(path)
	if err != nil {
		return false, false
	}
	if window <= 0 {
		return false, true
	}
	return c.now().Sub(info.ModTime()) <= window, true
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
