// Package identity encodes and decodes compound AniDB episode identifiers of
// the form "<seriesId>:[S]<episode>[-<episodeEnd>]", for example "123:S4-6".
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TypeSpecial marks a special episode. Regular episodes carry an empty type.
const TypeSpecial = "S"

// MaxEpisodes bounds the number of episode numbers Episodes will enumerate.
const MaxEpisodes = 10000

// ErrRangeTooWide is returned by Episodes for ranges covering more than
// MaxEpisodes numbers.
var ErrRangeTooWide = errors.New("identity: episode range too wide")

// Identity addresses one episode or an inclusive range of episodes.
type Identity struct {
	SeriesID      string
	EpisodeNumber int
	// EpisodeNumberEnd is set for multi-episode ranges.
	EpisodeNumberEnd *int
	EpisodeType      string
}

// IsSpecial reports whether the identity addresses specials.
func (id Identity) IsSpecial() bool {
	return id.EpisodeType == TypeSpecial
}

// String returns the canonical text form.
func (id Identity) String() string {
	return Format(id)
}

// Validate reports identities the grammar accepts but callers cannot serve.
func (id Identity) Validate() error {
	if id.SeriesID == "" {
		return fmt.Errorf("identity: series id is empty")
	}
	if id.EpisodeNumber < 0 {
		return fmt.Errorf("identity: episode number %d is negative", id.EpisodeNumber)
	}
	if id.EpisodeType != "" && id.EpisodeType != TypeSpecial {
		return fmt.Errorf("identity: unknown episode type %q", id.EpisodeType)
	}
	if id.EpisodeNumberEnd != nil && *id.EpisodeNumberEnd < id.EpisodeNumber {
		return fmt.Errorf("identity: range end %d is before start %d", *id.EpisodeNumberEnd, id.EpisodeNumber)
	}
	return nil
}

// Episodes lists the episode numbers covered, in ascending order. A range
// whose end precedes its start covers only the start.
func (id Identity) Episodes() ([]int, error) {
	start := id.EpisodeNumber
	if start < 0 {
		return nil, fmt.Errorf("identity: episode number %d is negative", start)
	}
	end := start
	if id.EpisodeNumberEnd != nil && *id.EpisodeNumberEnd > end {
		end = *id.EpisodeNumberEnd
	}
	// start >= 0, so end-start cannot overflow.
	if end-start >= MaxEpisodes {
		return nil, fmt.Errorf("%w: %d-%d", ErrRangeTooWide, start, end)
	}
	numbers := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// Format renders id canonically: no leading zeros, the type literal directly
// before the number, and a range joined by a single '-'.
func Format(id Identity) string {
	var b strings.Builder
	b.WriteString(canonicalDigits(id.SeriesID))
	b.WriteByte(':')
	b.WriteString(id.EpisodeType)
	b.WriteString(strconv.Itoa(id.EpisodeNumber))
	if id.EpisodeNumberEnd != nil {
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(*id.EpisodeNumberEnd))
	}
	return b.String()
}

func canonicalDigits(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}
