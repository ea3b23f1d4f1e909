package episodes

import (
	"regexp"
	"strings"
)

var anidbLink = regexp.MustCompile(`https?://(?:www\.)?anidb\.net/\S+ \[([^\]]*)\]`)

var overviewCutMarkers = []string{"Source:", "Note:"}

// CleanOverview strips AniDB cross-links down to their label, drops the
// trailing "Source:"/"Note:" block, and normalises line endings.
func CleanOverview(summary string) string {
	if summary == "" {
		return ""
	}
	text := anidbLink.ReplaceAllString(summary, "$1")
	for _, marker := range overviewCutMarkers {
		if idx := strings.Index(text, marker); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
