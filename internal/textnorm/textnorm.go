package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

var (
	urlRE        = regexp.MustCompile(`https?://\S+`)
	hashtagRE    = regexp.MustCompile(`#\S+`)
	urlExtractRE = regexp.MustCompile(`(?i)(https?://\S+)`)
	spaceRunRE   = regexp.MustCompile(`\s+`)
)

// Banner lines injected by some mobile news sites into scraped pages.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)install\s+pwa\s+using\s+add\s+to\s+home\s+screen`),
	regexp.MustCompile(`(?i)for\s+ios\s+and\s+ipad\s+browsers.*add\s+to\s+(home\s+screen|dock)`),
	regexp.MustCompile(`(?i)add\s+to\s+home\s+screen\s+in\s+ios\s+safari`),
}

var countryAliases = map[string]string{
	"haiti":       "haiti",
	"libia":       "libia",
	"libya":       "libia",
	"gaza":        "gaza",
	"colombia":    "colombia",
	"campello":    "campello",
	"el campello": "campello",
	"mali":        "mali",
}

// CollapseSpaces reduces every whitespace run to a single space and trims
// the ends.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRunRE.ReplaceAllString(s, " "))
}

// Fold lowercases s and transliterates accented or non-Latin characters to
// their closest ASCII form, collapsing whitespace. Both sides of a gazetteer
// comparison must go through the same fold.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return CollapseSpaces(strings.ToLower(unidecode.Unidecode(s)))
}

// SlugCountry normalizes a country name to its directory/file slug:
// lowercased, accent-folded, with a few fixed aliases ("libya" and "libia"
// share one archive).
func SlugCountry(raw string) string {
	if raw == "" {
		return ""
	}
	s := unidecode.Unidecode(strings.ToLower(strings.TrimSpace(raw)))
	if slug, ok := countryAliases[s]; ok {
		return slug
	}
	return s
}

// Capitalize uppercases the first rune and lowercases the rest, so country
// slugs render as display names ("libia" -> "Libia").
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// RemoveNoiseLines drops whole lines matching known banner patterns,
// leaving every other line untouched.
func RemoveNoiseLines(text string) string {
	if text == "" {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if matchesNoise(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// StripNoise cleans scraped article text: blank and banner lines are
// dropped and in-line whitespace runs are collapsed, preserving line
// structure.
func StripNoise(text string) string {
	if text == "" {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || matchesNoise(trimmed) {
			continue
		}
		kept = append(kept, spaceRunRE.ReplaceAllString(trimmed, " "))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func matchesNoise(line string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// CleanSummary condenses a raw message body into a short description:
// URLs and hashtags removed, attribution lines ("via ...") dropped, at
// most two sentences, truncated to 600 characters.
func CleanSummary(text string) string {
	if text == "" {
		return ""
	}
	text = urlRE.ReplaceAllString(text, "")
	text = hashtagRE.ReplaceAllString(text, "")

	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "via ") {
			continue
		}
		cleaned = append(cleaned, line)
	}
	text = strings.Join(cleaned, " ")

	sentences := SplitSentences(text)
	if len(sentences) > 2 {
		text = strings.Join(sentences[:2], " ")
	}

	if runes := []rune(text); len(runes) > 600 {
		text = strings.TrimRightFunc(string(runes[:597]), unicode.IsSpace) + "..."
	}
	return strings.TrimSpace(text)
}

// SplitSentences splits on whitespace runs that directly follow '.', '?'
// or '!'. The terminator stays attached to its sentence.
func SplitSentences(text string) []string {
	if text == "" {
		return []string{""}
	}
	var parts []string
	runes := []rune(text)
	start := 0
	i := 0
	for i < len(runes) {
		if unicode.IsSpace(runes[i]) && i > start && isSentenceEnd(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			start = i
			continue
		}
		i++
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// ExtractURLs returns every http(s) URL in order of appearance.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return urlExtractRE.FindAllString(text, -1)
}

// NormalizeKey builds the case- and whitespace-insensitive key used to
// skip already-seen message bodies within one run.
func NormalizeKey(s string) string {
	return strings.ToLower(CollapseSpaces(s))
}

// Normalize applies the full cleaning chain to one raw text block:
// banner lines, URLs and hashtags removed, whitespace collapsed, leading
// and trailing bullets or punctuation trimmed.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	text := RemoveNoiseLines(raw)
	text = urlRE.ReplaceAllString(text, "")
	text = hashtagRE.ReplaceAllString(text, "")
	text = CollapseSpaces(text)
	return strings.Trim(text, " \t•●*-–—.,;:")
}
