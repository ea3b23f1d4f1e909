package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

// Codes with special meaning in AniDB title lists.
const (
	Japanese = "ja"
	Romaji   = "x-jat"
	English  = "en"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter), or the AniDB private code
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"x-jat", "", "", "Japanese (romaji)", []string{"romaji", "japanese-romaji"}},
	{"x-zht", "", "", "Chinese (transliterated)", []string{"pinyin"}},
	{"x-kot", "", "", "Korean (transliterated)", nil},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
}

// Index maps built at init time.
var (
	byCode  map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode[e.code2] = e
		if e.code3 != "" {
			byCode3[e.code3] = e
		}
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	if e, ok := byCode[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Canonical reduces a language code to the form used for comparisons: the
// private AniDB codes verbatim, otherwise the ISO 639 base language
// ("en-US" -> "en", "eng" -> "en", "zh-Hans" -> "zh"). Unparseable input is
// returned lowercased and trimmed.
func Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	code = strings.ReplaceAll(code, "_", "-")
	if e := lookup(code); e != nil {
		return e.code2
	}
	if strings.HasPrefix(code, "x-") {
		return code
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return code
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return code
	}
	return base.String()
}

// Equal reports whether two codes name the same language for title selection.
func Equal(a, b string) bool {
	ca, cb := Canonical(a), Canonical(b)
	return ca != "" && ca == cb
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(Canonical(code)); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
