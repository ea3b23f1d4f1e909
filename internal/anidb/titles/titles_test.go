package titles

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"shamal/internal/anidb/episodes"
	"shamal/internal/doccache"
	"shamal/internal/ratelimit"
)

const dumpXML = `<?xml version="1.0" encoding="UTF-8"?>
<animetitles>
	<anime aid="1">
		<title xml:lang="x-jat" type="main">Seikai no Monshou</title>
		<title xml:lang="en" type="official">Crest of the Stars</title>
		<title xml:lang="ja" type="official">星界の紋章</title>
	</anime>
	<anime aid="23">
		<title xml:lang="x-jat" type="main">Cowboy Bebop</title>
		<title xml:lang="ja" type="official">カウボーイビバップ</title>
		<title xml:lang="en" type="syn">CB</title>
	</anime>
	<anime aid="5">
		<title xml:lang="x-jat" type="main">Cowboy Bebop: Tengoku no Tobira</title>
		<title xml:lang="en" type="official">Cowboy Bebop: The Movie</title>
	</anime>
	<anime aid="">
		<title xml:lang="en" type="main">Orphan Title</title>
	</anime>
	<anime aid="77">
		<title xml:lang="en" type="syn">Shared Name</title>
	</anime>
	<anime aid="78">
		<title xml:lang="en" type="main">Shared Name</title>
	</anime>
</animetitles>`

func mustParse(t *testing.T, doc string) *Index {
	t.Helper()
	ix, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ix
}

func TestParseBuildsIndex(t *testing.T) {
	ix := mustParse(t, dumpXML)
	if got := ix.SeriesCount(); got != 5 {
		t.Fatalf("SeriesCount = %d, want 5", got)
	}
	if got := ix.Skipped(); got != 1 {
		t.Fatalf("Skipped = %d, want 1", got)
	}
	records, ok := ix.Titles("23")
	if !ok || len(records) != 3 {
		t.Fatalf("Titles(23) = %+v, %v", records, ok)
	}
	if records[2].Type != episodes.TypeSynonym {
		t.Fatalf("syn not mapped to synonym: %q", records[2].Type)
	}
	if records[1].Language != "ja" {
		t.Fatalf("language = %q", records[1].Language)
	}
	if _, ok := ix.Titles("999"); ok {
		t.Fatal("unexpected titles for unknown series")
	}
}

func TestParseGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(dumpXML)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	ix, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ix.SeriesCount() != 5 {
		t.Fatalf("SeriesCount = %d", ix.SeriesCount())
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	for _, doc := range []string{
		`<animetitles><anime aid="1"><title>unterminated`,
		`<error>Banned</error>`,
		`<somethingelse/>`,
	} {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestResolve(t *testing.T) {
	ix := mustParse(t, dumpXML)
	tests := []struct {
		query string
		want  string
	}{
		{"Cowboy Bebop", "23"},
		{"cowboy bebop", "23"},
		{"COWBOY-BEBOP!", "23"},
		{"Cowboy Bebop The Movie", "5"},
		{"Crest of the Star", "1"},
		{"星界の紋章", "1"},
	}
	for _, tt := range tests {
		m, ok := ix.Resolve(tt.query, DefaultMinSimilarity)
		if !ok {
			t.Fatalf("Resolve(%q) found nothing", tt.query)
		}
		if m.SeriesID() != tt.want {
			t.Fatalf("Resolve(%q) = %s (%q, score %.2f), want %s", tt.query, m.SeriesID(), m.Record.Name, m.Score, tt.want)
		}
	}
}

func TestResolveNotFound(t *testing.T) {
	ix := mustParse(t, dumpXML)
	for _, query := range []string{"Totally Unknown Show XYZ123", "", "!!!"} {
		if m, ok := ix.Resolve(query, DefaultMinSimilarity); ok {
			t.Fatalf("Resolve(%q) = %s, want not found", query, m.SeriesID())
		}
	}
}

func TestResolveTieBreaksOnMainType(t *testing.T) {
	ix := mustParse(t, dumpXML)
	m, ok := ix.Resolve("shared name", DefaultMinSimilarity)
	if !ok || m.SeriesID() != "78" {
		t.Fatalf("Resolve = %s, want 78 (main title)", m.SeriesID())
	}
	if !m.Exact || m.Score != 1 {
		t.Fatalf("expected exact match, got %+v", m)
	}
}

func TestResolveTieBreaksOnEqualScores(t *testing.T) {
	rec := func(id string, typ episodes.TitleType, name string) Record {
		return Record{SeriesID: id, Title: episodes.Title{Language: "en", Type: typ, Name: name}}
	}
	tests := []struct {
		name    string
		records []Record
		query   string
		want    string
		exact   bool
	}{
		{
			name: "exact beats token permutation",
			records: []Record{
				rec("5", episodes.TypeMain, "Alpha Star River"),
				rec("23", episodes.TypeSynonym, "Star River Alpha"),
			},
			query: "star river alpha",
			want:  "23",
			exact: true,
		},
		{
			name: "smaller edit distance wins",
			records: []Record{
				rec("1", episodes.TypeMain, "Alpha Star River"),
				rec("2", episodes.TypeSynonym, "River Star Alpha"),
			},
			query: "Star River Alpha!",
			want:  "2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndex(tt.records)
			matches := ix.Search(tt.query, DefaultMinSimilarity, 0)
			if len(matches) != 2 {
				t.Fatalf("Search returned %d matches, want 2", len(matches))
			}
			if matches[0].Score != matches[1].Score {
				t.Fatalf("scores differ: %v vs %v", matches[0].Score, matches[1].Score)
			}
			m, ok := ix.Resolve(tt.query, DefaultMinSimilarity)
			if !ok || m.SeriesID() != tt.want {
				t.Fatalf("Resolve = %s, want %s", m.SeriesID(), tt.want)
			}
			if m.Exact != tt.exact {
				t.Fatalf("exact = %v, want %v", m.Exact, tt.exact)
			}
			if !tt.exact && m.Distance >= matches[1].Distance {
				t.Fatalf("winner distance %d not below runner-up %d", m.Distance, matches[1].Distance)
			}
		})
	}
}

func TestResolveAgreesWithSearch(t *testing.T) {
	ix := mustParse(t, dumpXML)
	for _, query := range []string{"Cowboy Bebop", "cowboy  bebop!", "shared name", "Crest of the Star"} {
		m, ok := ix.Resolve(query, DefaultMinSimilarity)
		matches := ix.Search(query, DefaultMinSimilarity, 1)
		if !ok || len(matches) != 1 {
			t.Fatalf("%q: Resolve ok=%v, Search returned %d", query, ok, len(matches))
		}
		if m.Record != matches[0].Record || m.Exact != matches[0].Exact {
			t.Fatalf("%q: Resolve = %+v, Search = %+v", query, m, matches[0])
		}
	}
}

func TestResolveTieBreaksOnDocumentOrder(t *testing.T) {
	ix := NewIndex([]Record{
		{SeriesID: "9", Title: episodes.Title{Language: "en", Type: episodes.TypeMain, Name: "Twin"}},
		{SeriesID: "3", Title: episodes.Title{Language: "en", Type: episodes.TypeMain, Name: "Twin"}},
	})
	m, ok := ix.Resolve("Twin", DefaultMinSimilarity)
	if !ok || m.SeriesID() != "9" {
		t.Fatalf("Resolve = %s, want 9", m.SeriesID())
	}
}

func TestSearchOnePerSeries(t *testing.T) {
	ix := mustParse(t, dumpXML)
	matches := ix.Search("Cowboy Bebop", 0.5, 10)
	if len(matches) < 2 {
		t.Fatalf("Search returned %d matches", len(matches))
	}
	if matches[0].SeriesID() != "23" {
		t.Fatalf("first match = %s", matches[0].SeriesID())
	}
	seen := map[string]bool{}
	for _, m := range matches {
		if seen[m.SeriesID()] {
			t.Fatalf("series %s returned twice", m.SeriesID())
		}
		seen[m.SeriesID()] = true
	}
	if got := ix.Search("Cowboy Bebop", 0.5, 1); len(got) != 1 {
		t.Fatalf("limit ignored: %d", len(got))
	}
}

func TestCandidatesLocalize(t *testing.T) {
	ix := mustParse(t, dumpXML)
	title, ok := episodes.Localize(ix.Candidates("1"), episodes.PreferLocalized, "en")
	if !ok || title.Name != "Crest of the Stars" {
		t.Fatalf("Localize = %q", title.Name)
	}
}

func newCatalog(t *testing.T, fetch doccache.FetchFunc) (*Catalog, *doccache.Cache) {
	t.Helper()
	cache, err := doccache.New(t.TempDir(), ratelimit.New(0))
	if err != nil {
		t.Fatalf("doccache.New: %v", err)
	}
	return NewCatalog(cache, fetch), cache
}

func TestCatalogLoadsOnceAndRebuildsOnRefresh(t *testing.T) {
	var calls atomic.Int32
	docs := []string{dumpXML, strings.Replace(dumpXML, "Cowboy Bebop</title>", "Space Cowboys</title>", 1)}
	catalog, _ := newCatalog(t, func(context.Context) ([]byte, error) {
		n := calls.Add(1)
		return []byte(docs[min(int(n)-1, len(docs)-1)]), nil
	})
	ctx := context.Background()

	first, err := catalog.Index(ctx)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	again, err := catalog.Index(ctx)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if first != again {
		t.Fatal("expected the same snapshot while the file is unchanged")
	}
	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls.Load())
	}

	// Make sure the refreshed file gets a distinct modification time.
	time.Sleep(10 * time.Millisecond)
	refreshed, err := catalog.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed == first {
		t.Fatal("expected a rebuilt snapshot after refresh")
	}
	m, ok, err := catalog.Resolve(ctx, "Space Cowboys", DefaultMinSimilarity)
	if err != nil || !ok || m.SeriesID() != "23" {
		t.Fatalf("Resolve after refresh = %v %v %v", m.SeriesID(), ok, err)
	}
}

func TestCatalogSurfacesFetchError(t *testing.T) {
	catalog, _ := newCatalog(t, func(context.Context) ([]byte, error) {
		return nil, errors.New("offline")
	})
	_, err := catalog.Index(context.Background())
	var fetchErr *doccache.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestCatalogSurfacesParseError(t *testing.T) {
	catalog, cache := newCatalog(t, func(context.Context) ([]byte, error) {
		return []byte("<animetitles><anime"), nil
	})
	_, err := catalog.Index(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	path, _ := cache.Path(CacheKey)
	if parseErr.Path != path {
		t.Fatalf("ParseError path = %q, want %q", parseErr.Path, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("document should stay cached: %v", err)
	}
}
