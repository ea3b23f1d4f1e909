package titles

import (
	"slices"
	"unicode/utf8"

	"shamal/internal/anidb/episodes"
	"shamal/internal/textutil"
)

// DefaultMinSimilarity is the score a title needs to count as a match.
const DefaultMinSimilarity = 0.8

// Match is a scored title.
type Match struct {
	Record   Record  `json:"record"`
	Score    float64 `json:"score"`
	Distance int     `json:"distance"`
	Exact    bool    `json:"exact"`
	order    int
}

// SeriesID returns the matched series.
func (m Match) SeriesID() string {
	return m.Record.SeriesID
}

// Resolve returns the best-scoring title at or above minSimilarity. The score
// is the larger of the Levenshtein ratio and the token cosine similarity of
// the normalised strings. Equal scores prefer an exact normalised match, then
// the smaller edit distance, then a main title, then document order.
func (ix *Index) Resolve(name string, minSimilarity float64) (Match, bool) {
	if m, ok := ix.exactMatch(textutil.Normalize(name)); ok {
		return m, true
	}
	var best Match
	found := false
	ix.scan(name, minSimilarity, func(m Match) {
		if !found || better(m, best) {
			best = m
			found = true
		}
	})
	return best, found
}

// Search returns up to limit matches, at most one per series, best first. A
// non-positive limit returns every series that clears minSimilarity.
func (ix *Index) Search(query string, minSimilarity float64, limit int) []Match {
	bestBySeries := make(map[string]Match)
	ix.scan(query, minSimilarity, func(m Match) {
		current, ok := bestBySeries[m.Record.SeriesID]
		if !ok || better(m, current) {
			bestBySeries[m.Record.SeriesID] = m
		}
	})
	matches := make([]Match, 0, len(bestBySeries))
	for _, m := range bestBySeries {
		matches = append(matches, m)
	}
	slices.SortFunc(matches, func(a, b Match) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// exactMatch picks among titles whose normalised form equals normalized. An
// exact match scores 1, so no fuzzy candidate can outrank it.
func (ix *Index) exactMatch(normalized string) (Match, bool) {
	if ix == nil || normalized == "" {
		return Match{}, false
	}
	var best Match
	found := false
	for _, pos := range ix.exact[normalized] {
		e := &ix.entries[pos]
		m := Match{Record: e.record, Score: 1, Exact: true, order: e.order}
		if !found || better(m, best) {
			best = m
			found = true
		}
	}
	return best, found
}

func (ix *Index) scan(query string, minSimilarity float64, visit func(Match)) {
	if ix == nil || len(ix.entries) == 0 {
		return
	}
	normalized := textutil.Normalize(query)
	if normalized == "" {
		return
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	fingerprint := textutil.NewFingerprintNormalized(normalized)
	queryRunes := utf8.RuneCountInString(normalized)

	for i := range ix.entries {
		e := &ix.entries[i]
		if e.normalized == normalized {
			visit(Match{Record: e.record, Score: 1, Distance: 0, Exact: true, order: e.order})
			continue
		}
		cosine := textutil.CosineSimilarity(fingerprint, e.fingerprint)
		// The ratio can never exceed shorter/longer, so skip the edit
		// distance when neither measure can reach the threshold.
		ceiling := float64(min(queryRunes, e.runes)) / float64(max(queryRunes, e.runes))
		if cosine < minSimilarity && ceiling < minSimilarity {
			continue
		}
		distance := textutil.EditDistance(normalized, e.normalized)
		score := max(cosine, textutil.LevenshteinRatio(normalized, e.normalized, distance))
		if score < minSimilarity {
			continue
		}
		visit(Match{Record: e.record, Score: score, Distance: distance, order: e.order})
	}
}

func better(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Exact != b.Exact {
		return a.Exact
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	aMain, bMain := a.Record.Type == episodes.TypeMain, b.Record.Type == episodes.TypeMain
	if aMain != bMain {
		return aMain
	}
	return a.order < b.order
}
