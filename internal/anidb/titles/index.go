// Package titles loads the AniDB anime title dump and resolves free-text
// names to AniDB series ids.
package titles

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"shamal/internal/anidb/episodes"
	"shamal/internal/textutil"
)

// Record is one title of one series.
type Record struct {
	SeriesID string `json:"series_id"`
	episodes.Title
}

type entry struct {
	record      Record
	normalized  string
	fingerprint *textutil.Fingerprint
	runes       int
	order       int
}

// Index is an immutable snapshot of the title dump. It is safe for
// concurrent use.
type Index struct {
	series   []string
	bySeries map[string][]Record
	entries  []entry
	exact    map[string][]int
	skipped  int
}

// NewIndex builds an index from records in document order. Records without a
// series id or name are skipped and counted.
func NewIndex(records []Record) *Index {
	ix := &Index{
		bySeries: make(map[string][]Record),
		exact:    make(map[string][]int),
		entries:  make([]entry, 0, len(records)),
	}
	for _, rec := range records {
		rec.SeriesID = strings.TrimSpace(rec.SeriesID)
		rec.Name = strings.TrimSpace(rec.Name)
		if rec.SeriesID == "" || rec.Name == "" {
			ix.skipped++
			continue
		}
		if _, ok := ix.bySeries[rec.SeriesID]; !ok {
			ix.series = append(ix.series, rec.SeriesID)
		}
		ix.bySeries[rec.SeriesID] = append(ix.bySeries[rec.SeriesID], rec)

		normalized := textutil.Normalize(rec.Name)
		if normalized == "" {
			continue
		}
		pos := len(ix.entries)
		ix.entries = append(ix.entries, entry{
			record:      rec,
			normalized:  normalized,
			fingerprint: textutil.NewFingerprintNormalized(normalized),
			runes:       utf8.RuneCountInString(normalized),
			order:       pos,
		})
		ix.exact[normalized] = append(ix.exact[normalized], pos)
	}
	return ix
}

// Len returns the number of indexed titles.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// SeriesCount returns the number of distinct series.
func (ix *Index) SeriesCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.series)
}

// Skipped returns how many records were dropped while building the index.
func (ix *Index) Skipped() int {
	if ix == nil {
		return 0
	}
	return ix.skipped
}

// Titles returns the titles of a series in document order.
func (ix *Index) Titles(seriesID string) ([]Record, bool) {
	if ix == nil {
		return nil, false
	}
	records, ok := ix.bySeries[strings.TrimSpace(seriesID)]
	if !ok {
		return nil, false
	}
	return append([]Record(nil), records...), true
}

// Candidates returns the titles of a series as localisation candidates.
func (ix *Index) Candidates(seriesID string) []episodes.Title {
	records, _ := ix.Titles(seriesID)
	out := make([]episodes.Title, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Title)
	}
	return out
}

type titleDump struct {
	Anime []animeTitles `xml:"anime"`
}

type animeTitles struct {
	ID     string      `xml:"aid,attr"`
	Titles []dumpTitle `xml:"title"`
}

type dumpTitle struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

// Parse reads an AniDB anime-titles document, gzip-compressed or plain.
func Parse(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip title dump: %w", err)
		}
		defer zr.Close()
		return parseXML(zr)
	}
	return parseXML(br)
}

func parseXML(r io.Reader) (*Index, error) {
	decoder := xml.NewDecoder(r)
	var records []Record
	sawRoot := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode title dump: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "animetitles":
			sawRoot = true
		case "error":
			var message string
			_ = decoder.DecodeElement(&message, &start)
			return nil, fmt.Errorf("title dump is an AniDB error: %s", strings.TrimSpace(message))
		case "anime":
			var anime animeTitles
			if err := decoder.DecodeElement(&anime, &start); err != nil {
				return nil, fmt.Errorf("decode anime %q: %w", anime.ID, err)
			}
			for _, t := range anime.Titles {
				records = append(records, Record{
					SeriesID: anime.ID,
					Title: episodes.Title{
						Language: strings.TrimSpace(t.Lang),
						Type:     episodes.ParseTitleType(t.Type),
						Name:     t.Name,
					},
				})
			}
		}
	}
	if !sawRoot {
		return nil, errors.New("decode title dump: missing animetitles root")
	}
	return NewIndex(records), nil
}
