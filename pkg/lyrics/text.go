package lyrics

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/versewright/versewright/pkg/gemini"
	"github.com/versewright/versewright/pkg/models"
)

// Output caps imposed by Suno.ai.
const (
	SunoMaxRunes         = 3000
	SunoTruncationMarker = "\n[TRUNCATED]"
	StyleMaxRunes        = 200
	StyleEllipsis        = "..."
)

var (
	metaTagPattern = regexp.MustCompile(`\[[^\]\n]*\]`)
	idReplacer     = strings.NewReplacer(".", "_", "#", "_", "$", "_", "[", "_", "]", "_", "/", "_")
)

// StripTags removes square-bracket meta tags such as [verse] and trims the
// result.
func StripTags(text string) string {
	return strings.TrimSpace(metaTagPattern.ReplaceAllString(text, ""))
}

// SanitizeID turns a free-form name into a stable storage key: characters
// that are unsafe in document IDs become underscores, and the result is
// lowercased and trimmed.
func SanitizeID(name string) string {
	return strings.TrimSpace(strings.ToLower(idReplacer.Replace(name)))
}

// ApplySuggestion replaces the passage a weak spot points at.
func ApplySuggestion(lyrics string, spot models.WeakSpot, replacement string) (string, error) {
	if !spot.Anchored() || spot.EndIndex > len(lyrics) || lyrics[spot.StartIndex:spot.EndIndex] != spot.Text {
		return "", invalidInput("weak spot does not match the lyrics")
	}
	return lyrics[:spot.StartIndex] + replacement + lyrics[spot.EndIndex:], nil
}

// CapRunes limits text to max runes. Longer text is cut so that, with marker
// appended, the result is exactly max runes. Text within the limit is returned
// unchanged.
func CapRunes(text string, max int, marker string) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	keep := max - utf8.RuneCountInString(marker)
	if keep < 0 {
		keep = 0
	}
	return truncateRunes(text, keep) + marker
}

func truncateRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// normalizeAttributions keeps web chunks that carry a URI or a title.
func normalizeAttributions(chunks []gemini.GroundingChunk) []models.Attribution {
	var out []models.Attribution
	for _, c := range chunks {
		if c.Web == nil {
			continue
		}
		uri, title := strings.TrimSpace(c.Web.URI), strings.TrimSpace(c.Web.Title)
		if uri == "" && title == "" {
			continue
		}
		out = append(out, models.Attribution{URI: uri, Title: title})
	}
	return out
}

// anchorWeakSpots drops empty entries and makes every offset pair either
// point at the exact text in lyrics or be -1,-1.
func anchorWeakSpots(lyrics string, spots []models.WeakSpot) []models.WeakSpot {
	out := make([]models.WeakSpot, 0, len(spots))
	for _, w := range spots {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		out = append(out, anchorWeakSpot(lyrics, w))
	}
	return out
}

func anchorWeakSpot(lyrics string, w models.WeakSpot) models.WeakSpot {
	if matchesAt(lyrics, w.Text, w.StartIndex, w.EndIndex) {
		return w
	}
	// Models usually count characters, not bytes.
	if s, e, ok := runeToByteRange(lyrics, w.StartIndex, w.EndIndex); ok && matchesAt(lyrics, w.Text, s, e) {
		w.StartIndex, w.EndIndex = s, e
		return w
	}
	if i := strings.Index(lyrics, w.Text); i >= 0 {
		w.StartIndex, w.EndIndex = i, i+len(w.Text)
		return w
	}
	w.StartIndex, w.EndIndex = -1, -1
	return w
}

func matchesAt(lyrics, text string, start, end int) bool {
	return start >= 0 && start < end && end <= len(lyrics) && lyrics[start:end] == text
}

func runeToByteRange(lyrics string, start, end int) (int, int, bool) {
	if start < 0 || end <= start {
		return 0, 0, false
	}
	bs, be := -1, -1
	n := 0
	for i := range lyrics {
		if n == start {
			bs = i
		}
		if n == end {
			be = i
			break
		}
		n++
	}
	if be < 0 && n == end {
		be = len(lyrics)
	}
	if bs < 0 || be < 0 {
		return 0, 0, false
	}
	return bs, be, true
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
