package doccache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shamal/internal/ratelimit"
)

const week = 7 * 24 * time.Hour

type countingFetcher struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (f *countingFetcher) fetch(context.Context) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	cache, err := New(t.TempDir(), ratelimit.New(0), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cache
}

func seed(t *testing.T, cache *Cache, key, content string, age time.Duration) string {
	t.Helper()
	path, err := cache.Path(key)
	if err != nil {
		t.Fatalf("Path(%q): %v", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	modTime := time.Now().Add(-age)
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestEnsureFreshFetchesMissingDocument(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &countingFetcher{data: []byte("<animetitles/>")}

	path, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week)
	if err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if want := filepath.Join(cache.Dir(), "titles.xml"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	if got := readFile(t, path); got != "<animetitles/>" {
		t.Fatalf("content = %q", got)
	}
}

func TestEnsureFreshUsesCopyInsideWindow(t *testing.T) {
	cache := newTestCache(t)
	seed(t, cache, "titles.xml", "old", 6*24*time.Hour)
	fetcher := &countingFetcher{data: []byte("new")}

	path, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week)
	if err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if got := fetcher.calls.Load(); got != 0 {
		t.Fatalf("fetch calls = %d, want 0", got)
	}
	if got := readFile(t, path); got != "old" {
		t.Fatalf("content = %q, want old", got)
	}
}

func TestEnsureFreshRefetchesStaleCopy(t *testing.T) {
	cache := newTestCache(t)
	seed(t, cache, "titles.xml", "old", 8*24*time.Hour)
	fetcher := &countingFetcher{data: []byte("new")}

	before := time.Now().Add(-time.Second)
	path, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week)
	if err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	if got := readFile(t, path); got != "new" {
		t.Fatalf("content = %q, want new", got)
	}
	entry, ok, err := cache.Stat("titles.xml")
	if err != nil || !ok {
		t.Fatalf("Stat: ok=%v err=%v", ok, err)
	}
	if entry.ModTime.Before(before) {
		t.Fatalf("modtime %v not refreshed", entry.ModTime)
	}
}

func TestEnsureFreshZeroWindowForcesRefetch(t *testing.T) {
	cache := newTestCache(t)
	seed(t, cache, "titles.xml", "old", time.Minute)
	fetcher := &countingFetcher{data: []byte("new")}

	if _, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, 0); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestEnsureFreshServesStaleCopyWhenFetchFails(t *testing.T) {
	cache := newTestCache(t)
	seeded := seed(t, cache, "series/1/series.xml", "stale", 30*24*time.Hour)
	fetcher := &countingFetcher{err: errors.New("connection refused")}

	path, err := cache.EnsureFresh(context.Background(), "series/1/series.xml", fetcher.fetch, week)
	if err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if path != seeded {
		t.Fatalf("path = %q, want %q", path, seeded)
	}
	if got := readFile(t, path); got != "stale" {
		t.Fatalf("content = %q, want stale", got)
	}
}

func TestEnsureFreshFetchErrorWithoutCopy(t *testing.T) {
	cache := newTestCache(t)
	cause := errors.New("connection refused")
	fetcher := &countingFetcher{err: cause}

	_, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Key != "titles.xml" {
		t.Fatalf("FetchError key = %q", fetchErr.Key)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if _, ok, _ := cache.Stat("titles.xml"); ok {
		t.Fatal("failed fetch must not create a document")
	}
}

func TestEnsureFreshEmptyDocumentIsFetchFailure(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &countingFetcher{data: nil}

	_, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestEnsureFreshWriteError(t *testing.T) {
	cache := newTestCache(t)
	// A regular file where a directory is needed.
	if err := os.WriteFile(filepath.Join(cache.Dir(), "series"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	fetcher := &countingFetcher{data: []byte("doc")}

	_, err := cache.EnsureFresh(context.Background(), "series/1/series.xml", fetcher.fetch, week)
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
}

func TestEnsureFreshSingleFlight(t *testing.T) {
	cache := newTestCache(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []byte("shared"), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	paths := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = cache.EnsureFresh(context.Background(), "titles.xml", fetch, week)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if paths[i] != paths[0] {
			t.Fatalf("caller %d path = %q, want %q", i, paths[i], paths[0])
		}
	}
}

func TestEnsureFreshWaiterHonoursOwnContext(t *testing.T) {
	cache := newTestCache(t)
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		close(started)
		<-release
		return []byte("doc"), nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.EnsureFresh(context.Background(), "titles.xml", fetch, week)
	}()
	<-started
	defer func() {
		close(release)
		<-done
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.EnsureFresh(ctx, "titles.xml", fetch, week)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEnsureFreshCancelledBeforeFetch(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &countingFetcher{data: []byte("doc")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.EnsureFresh(ctx, "titles.xml", fetcher.fetch, week)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := fetcher.calls.Load(); got != 0 {
		t.Fatalf("fetch calls = %d, want 0", got)
	}
}

func TestCancelledDelayReturnsLimiterSlot(t *testing.T) {
	dir := t.TempDir()
	limiter := ratelimit.New(time.Hour)
	slow, err := New(dir, limiter, WithDelay(time.Hour))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fetcher := &countingFetcher{data: []byte("doc")}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := slow.EnsureFresh(ctx, "a.xml", fetcher.fetch, week); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	fast, err := New(dir, limiter)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// The abandoned refresh hands its slot back asynchronously; poll until it
	// has. A wait that times out never consumes a slot.
	var lastErr error
	for range 40 {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, lastErr = fast.EnsureFresh(ctx2, "b.xml", fetcher.fetch, week)
		cancel2()
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		t.Fatalf("expected refunded slot, got %v", lastErr)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestEnsureFreshLeavesNoTempFiles(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &countingFetcher{data: []byte("doc")}
	for range 3 {
		if _, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, 0); err != nil {
			t.Fatalf("EnsureFresh: %v", err)
		}
	}
	entries, err := os.ReadDir(cache.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), tempSuffix) {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &countingFetcher{data: []byte("doc")}
	for _, key := range []string{"", "/abs", "a//b", "../escape", "a/./b", "a/..", "sp ace", "a\\b", "ümlaut", "titles.xml.lock", "x.tmp", "trailing/"} {
		if _, err := cache.EnsureFresh(context.Background(), key, fetcher.fetch, week); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
	if got := fetcher.calls.Load(); got != 0 {
		t.Fatalf("fetch calls = %d, want 0", got)
	}
}

func TestValidKeysMapBelowDir(t *testing.T) {
	cache := newTestCache(t)
	for _, key := range []string{"titles.xml", "series/1/series.xml", "a-b_c.d"} {
		path, err := cache.Path(key)
		if err != nil {
			t.Fatalf("Path(%q): %v", key, err)
		}
		rel, err := filepath.Rel(cache.Dir(), path)
		if err != nil || filepath.ToSlash(rel) != key {
			t.Fatalf("Path(%q) = %q", key, path)
		}
	}
}

func TestStatsCountsDocumentsOnly(t *testing.T) {
	cache := newTestCache(t)
	fetcher := &countingFetcher{data: []byte("12345")}
	for _, key := range []string{"titles.xml", "series/1/series.xml"} {
		if _, err := cache.EnsureFresh(context.Background(), key, fetcher.fetch, week); err != nil {
			t.Fatalf("EnsureFresh(%q): %v", key, err)
		}
	}
	// A temp file left by an interrupted write is not a document.
	stray := filepath.Join(cache.Dir(), "series", "1", ".series.xml-123456.tmp")
	if err := os.WriteFile(stray, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write stray temp file: %v", err)
	}
	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Files != 2 || stats.Bytes != 10 {
		t.Fatalf("stats = %+v, want 2 files / 10 bytes", stats)
	}
}

func TestClockStampsModTime(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestCache(t, WithClock(func() time.Time { return fixed }))
	fetcher := &countingFetcher{data: []byte("doc")}
	if _, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	entry, ok, err := cache.Stat("titles.xml")
	if err != nil || !ok {
		t.Fatalf("Stat: ok=%v err=%v", ok, err)
	}
	if !entry.ModTime.Equal(fixed) {
		t.Fatalf("modtime = %v, want %v", entry.ModTime, fixed)
	}
	// Six days on, still fresh under the same clock.
	fixed = fixed.Add(6 * 24 * time.Hour)
	if _, err := cache.EnsureFresh(context.Background(), "titles.xml", fetcher.fetch, week); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}
