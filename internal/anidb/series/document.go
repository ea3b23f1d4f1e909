// Package series caches and parses per-series AniDB anime documents.
package series

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"shamal/internal/anidb/episodes"
)

// GenreMinWeight is the tag weight a tag needs to be reported as a genre.
const GenreMinWeight = 400

var studioCreatorTypes = []string{"Animation Work", "Work"}

type animeXML struct {
	XMLName      xml.Name           `xml:"anime"`
	ID           string             `xml:"id,attr"`
	Restricted   bool               `xml:"restricted,attr"`
	Type         string             `xml:"type"`
	EpisodeCount string             `xml:"episodecount"`
	StartDate    string             `xml:"startdate"`
	EndDate      string             `xml:"enddate"`
	Titles       []titleXML         `xml:"titles>title"`
	Description  string             `xml:"description"`
	Permanent    *ratingXML         `xml:"ratings>permanent"`
	Tags         []tagXML           `xml:"tags>tag"`
	Creators     []creatorXML       `xml:"creators>name"`
	Episodes     []episodes.Episode `xml:"episodes>episode"`
}

type titleXML struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

type ratingXML struct {
	Count string `xml:"count,attr"`
	Value string `xml:",chardata"`
}

type tagXML struct {
	Weight int    `xml:"weight,attr"`
	Name   string `xml:"name"`
}

type creatorXML struct {
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

// Tag is a weighted AniDB tag.
type Tag struct {
	Name   string
	Weight int
}

// Document is an immutable parsed anime document.
type Document struct {
	SeriesID     string
	Type         string
	Restricted   bool
	EpisodeCount int
	StartDate    *time.Time
	EndDate      *time.Time
	Titles       []episodes.Title
	Description  string
	Rating       *float64
	Tags         []Tag
	Studios      []string

	episodes map[string]episodes.Episode
	keys     []string
}

// Episode returns the episode stored under key ("N" or "SN").
func (d *Document) Episode(key string) (episodes.Episode, bool) {
	if d == nil {
		return episodes.Episode{}, false
	}
	e, ok := d.episodes[key]
	return e, ok
}

// EpisodeKeys lists episode keys in document order.
func (d *Document) EpisodeKeys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Genres returns tag names with at least GenreMinWeight, heaviest first.
func (d *Document) Genres() []string {
	if d == nil {
		return nil
	}
	var genres []string
	for _, tag := range d.Tags {
		if tag.Weight >= GenreMinWeight {
			genres = append(genres, tag.Name)
		}
	}
	return genres
}

// Parse decodes an AniDB anime document.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if msg, ok := ErrorMessage(trimmed); ok {
		return nil, fmt.Errorf("document is an AniDB error: %s", msg)
	}

	var raw animeXML
	if err := xml.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode anime document: %w", err)
	}
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return nil, errors.New("anime document has no id")
	}

	doc := &Document{
		SeriesID:    id,
		Type:        strings.TrimSpace(raw.Type),
		Restricted:  raw.Restricted,
		Description: episodes.CleanOverview(raw.Description),
		episodes:    make(map[string]episodes.Episode, len(raw.Episodes)),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw.EpisodeCount)); err == nil {
		doc.EpisodeCount = n
	}
	if t, ok := episodes.ParseDate(raw.StartDate); ok {
		doc.StartDate = &t
	}
	if t, ok := episodes.ParseDate(raw.EndDate); ok {
		doc.EndDate = &t
	}
	if raw.Permanent != nil {
		if rating, ok := episodes.ParseRating(raw.Permanent.Count, raw.Permanent.Value); ok {
			doc.Rating = &rating
		}
	}
	for _, t := range raw.Titles {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		doc.Titles = append(doc.Titles, episodes.Title{
			Language: strings.TrimSpace(t.Lang),
			Type:     episodes.ParseTitleType(t.Type),
			Name:     name,
		})
	}
	for _, t := range raw.Tags {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		doc.Tags = append(doc.Tags, Tag{Name: name, Weight: t.Weight})
	}
	slices.SortStableFunc(doc.Tags, func(a, b Tag) int { return b.Weight - a.Weight })
	for _, c := range raw.Creators {
		name := strings.TrimSpace(c.Name)
		if name != "" && slices.Contains(studioCreatorTypes, strings.TrimSpace(c.Type)) && !slices.Contains(doc.Studios, name) {
			doc.Studios = append(doc.Studios, name)
		}
	}
	for _, e := range raw.Episodes {
		key := e.Key()
		if key == "" {
			continue
		}
		if _, dup := doc.episodes[key]; dup {
			continue
		}
		doc.episodes[key] = e
		doc.keys = append(doc.keys, key)
	}
	return doc, nil
}

// ErrorMessage reports whether data is an AniDB <error> payload and returns
// its message. AniDB answers failed API calls with HTTP 200 and such a body.
func ErrorMessage(data []byte) (string, bool) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "error" {
			return "", false
		}
		var message string
		if err := decoder.DecodeElement(&message, &start); err != nil {
			return "unknown error", true
		}
		return strings.TrimSpace(message), true
	}
}
