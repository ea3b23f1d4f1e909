package episodes

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TicksPerMinute converts AniDB lengths into 100ns runtime ticks.
const TicksPerMinute int64 = 600_000_000

// AniDB epno type attribute values.
const (
	epnoRegular = 1
	epnoSpecial = 2
)

// Episode mirrors an AniDB <episode> element.
type Episode struct {
	ID      string         `xml:"id,attr"`
	EpNo    EpisodeNumber  `xml:"epno"`
	Length  string         `xml:"length"`
	AirDate string         `xml:"airdate"`
	Rating  *EpisodeRating `xml:"rating"`
	Titles  []EpisodeTitle `xml:"title"`
	Summary string         `xml:"summary"`
}

type EpisodeNumber struct {
	Type  int    `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type EpisodeRating struct {
	Votes string `xml:"votes,attr"`
	Value string `xml:",chardata"`
}

type EpisodeTitle struct {
	Lang  string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Title string `xml:",chardata"`
}

// Key returns the lookup key for an episode: "N" for regular episodes and
// "SN" for specials. Other kinds (credits, trailers) keep their raw epno,
// which identity strings cannot address.
func (e Episode) Key() string {
	raw := strings.TrimSpace(e.EpNo.Value)
	if n, special, ok := parseEpNo(raw, e.EpNo.Type); ok {
		return Key(n, special)
	}
	return raw
}

// Number reports the episode number and whether it is a special. ok is false
// for credits, trailers and other kinds that have no number of their own.
func (e Episode) Number() (n int, special, ok bool) {
	return parseEpNo(strings.TrimSpace(e.EpNo.Value), e.EpNo.Type)
}

// lengthTicks converts an AniDB length in minutes to runtime ticks. Negative
// lengths and lengths whose tick count overflows int64 are unparseable.
func lengthTicks(raw string) (int64, bool) {
	minutes, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || minutes < 0 || minutes > math.MaxInt64/TicksPerMinute {
		return 0, false
	}
	return minutes * TicksPerMinute, true
}

// Key formats the lookup key for episode n.
func Key(n int, special bool) string {
	if special {
		return "S" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func parseEpNo(raw string, kind int) (int, bool, bool) {
	special := false
	digits := raw
	if strings.HasPrefix(raw, "S") {
		special = true
		digits = raw[1:]
	}
	if kind == epnoSpecial {
		special = true
	} else if kind != 0 && kind != epnoRegular {
		return 0, false, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false, false
	}
	return n, special, true
}

// Record is the assembled metadata for one episode or a merged range.
type Record struct {
	Key               string     `json:"key"`
	IndexNumber       *int       `json:"index_number,omitempty"`
	ParentIndexNumber *int       `json:"parent_index_number,omitempty"`
	RuntimeTicks      *int64     `json:"runtime_ticks,omitempty"`
	PremiereDate      *time.Time `json:"premiere_date,omitempty"`
	ProductionYear    *int       `json:"production_year,omitempty"`
	CommunityRating   *float64   `json:"community_rating,omitempty"`
	Overview          string     `json:"overview,omitempty"`
	Name              string     `json:"name"`
	Titles            []Title    `json:"titles,omitempty"`
}

// Runtime returns RuntimeTicks as a duration.
func (r Record) Runtime() time.Duration {
	if r.RuntimeTicks == nil {
		return 0
	}
	return time.Duration(*r.RuntimeTicks) * 100
}

// FromEpisode builds a record from a parsed element. Unparseable scalar fields
// are left unset, matching how AniDB omits unknown values.
func FromEpisode(e Episode, pref Preference, preferred string) Record {
	rec := Record{Key: e.Key()}

	if n, special, ok := parseEpNo(strings.TrimSpace(e.EpNo.Value), e.EpNo.Type); ok {
		parent := 1
		if special {
			parent = 0
		}
		rec.IndexNumber = &n
		rec.ParentIndexNumber = &parent
	}

	if ticks, ok := lengthTicks(e.Length); ok {
		rec.RuntimeTicks = &ticks
	}

	if date, ok := ParseDate(e.AirDate); ok {
		year := date.Year()
		rec.PremiereDate = &date
		rec.ProductionYear = &year
	}

	if e.Rating != nil {
		if rating, ok := ParseRating(e.Rating.Votes, e.Rating.Value); ok {
			rec.CommunityRating = &rating
		}
	}

	for _, t := range e.Titles {
		name := strings.TrimSpace(t.Title)
		if name == "" {
			continue
		}
		rec.Titles = append(rec.Titles, Title{Language: t.Lang, Type: TypeMain, Name: name})
	}
	if title, ok := Localize(rec.Titles, pref, preferred); ok {
		rec.Name = title.Name
	}

	rec.Overview = CleanOverview(e.Summary)
	return rec
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01", "2006"}

// ParseDate reads AniDB dates, which are usually plain YYYY-MM-DD, as UTC.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseRating returns the rating rounded to one decimal. A rating without an
// integer vote count is ignored.
func ParseRating(votes, value string) (float64, bool) {
	if _, err := strconv.Atoi(strings.TrimSpace(votes)); err != nil {
		return 0, false
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0, false
	}
	return math.Round(rating*10) / 10, true
}
