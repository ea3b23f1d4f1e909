package textutil

import (
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	sim := dot / (a.norm * b.norm)
	if sim > 1 {
		return 1
	}
	return sim
}

// EditDistance returns the rune-level Levenshtein distance between a and b.
func EditDistance(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}

// LevenshteinRatio maps an edit distance onto [0,1], where 1 means identical.
// Both inputs are expected to be normalised.
func LevenshteinRatio(a, b string, distance int) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	ratio := 1 - float64(distance)/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}
