// Package episodes turns AniDB episode elements into episode records, picks
// the display title for a language policy, and merges multi-episode ranges.
package episodes

import (
	"fmt"
	"strings"

	"shamal/internal/language"
)

// TitleType ranks a title within one language.
type TitleType string

// AniDB title types. The dump spells synonym as "syn".
const (
	TypeMain     TitleType = "main"
	TypeOfficial TitleType = "official"
	TypeSynonym  TitleType = "synonym"
	TypeShort    TitleType = "short"
)

// ParseTitleType maps an AniDB type attribute onto a TitleType. Unknown values
// are kept verbatim so they rank after the known types.
func ParseTitleType(raw string) TitleType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "main":
		return TypeMain
	case "official":
		return TypeOfficial
	case "syn", "synonym":
		return TypeSynonym
	case "short":
		return TypeShort
	default:
		return TitleType(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// Title is one named candidate for display.
type Title struct {
	Language string    `json:"language"`
	Type     TitleType `json:"type"`
	Name     string    `json:"name"`
}

// Preference selects which language family is shown.
type Preference string

const (
	PreferLocalized      Preference = "localized"
	PreferJapanese       Preference = "japanese"
	PreferJapaneseRomaji Preference = "japanese_romaji"
)

// ParsePreference accepts the configuration spellings of a Preference.
func ParsePreference(raw string) (Preference, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "", "localized", "localised":
		return PreferLocalized, nil
	case "japanese":
		return PreferJapanese, nil
	case "japanese_romaji", "romaji":
		return PreferJapaneseRomaji, nil
	default:
		return "", fmt.Errorf("unknown title preference %q", raw)
	}
}

var typeOrder = []TitleType{TypeMain, TypeOfficial, TypeSynonym, TypeShort}

func (p Preference) languages(preferred string) []string {
	switch p {
	case PreferJapanese:
		return []string{language.Japanese, language.Romaji}
	case PreferJapaneseRomaji:
		return []string{language.Romaji, language.Japanese}
	default:
		chain := make([]string, 0, 3)
		if strings.TrimSpace(preferred) != "" {
			chain = append(chain, preferred)
		}
		return append(chain, language.Romaji, language.Japanese)
	}
}

// Localize picks the title to display. Languages are tried in the policy's
// order; within a language main beats official, then synonym, then short, then
// anything else. When no language matches, the first main title wins, then the
// first non-empty title. The result is empty only when every name is empty.
func Localize(titles []Title, pref Preference, preferred string) (Title, bool) {
	for _, lang := range pref.languages(preferred) {
		var fallback *Title
		for _, kind := range typeOrder {
			for i := range titles {
				t := &titles[i]
				if t.Name == "" || !language.Equal(t.Language, lang) {
					continue
				}
				if t.Type == kind {
					return *t, true
				}
				if fallback == nil {
					fallback = t
				}
			}
		}
		if fallback != nil {
			return *fallback, true
		}
	}
	for _, t := range titles {
		if t.Name != "" && t.Type == TypeMain {
			return t, true
		}
	}
	for _, t := range titles {
		if t.Name != "" {
			return t, true
		}
	}
	return Title{}, false
}
