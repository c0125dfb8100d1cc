// Package translate defines the seam between the pipeline and whatever
// renders feed bodies in Spanish. The bundled implementation does no
// language detection or translation, it only shapes an excerpt; a real
// backend can be plugged in behind the same interface.
package translate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"opsintel/internal/textnorm"
)

// Translator renders a feed body as a Spanish excerpt of at most
// maxChars characters. maxChars <= 0 means no limit.
type Translator interface {
	SpanishExcerpt(text string, maxChars int) (string, error)
}

// Excerpt passes text through untranslated: whitespace collapsed, then
// clipped to maxChars, preferring a sentence boundary.
type Excerpt struct{}

func (Excerpt) SpanishExcerpt(text string, maxChars int) (string, error) {
	return Shorten(textnorm.CollapseSpaces(text), maxChars), nil
}

// Shorten clips text to maxChars characters. When the first sentence
// terminator lands before the limit the cut happens there, keeping the
// terminator; otherwise the text is truncated with a "..." marker.
func Shorten(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}
	for _, splitter := range []string{". ", "! ", "? "} {
		idx := strings.Index(text, splitter)
		if idx <= 0 {
			continue
		}
		if utf8.RuneCountInString(text[:idx]) < maxChars {
			return text[:idx+1]
		}
	}
	return strings.TrimRightFunc(string(runes[:maxChars-3]), unicode.IsSpace) + "..."
}
