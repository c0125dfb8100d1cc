package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShorten_UnderLimitUnchanged(t *testing.T) {
	assert.Equal(t, "corto", Shorten("corto", 400))
}

func TestShorten_NoLimit(t *testing.T) {
	long := strings.Repeat("a", 500)
	assert.Equal(t, long, Shorten(long, 0))
}

func TestShorten_CutsAtFirstSentenceEnd(t *testing.T) {
	text := "Primera frase. Segunda frase que sigue y sigue." + strings.Repeat(" relleno", 60)
	assert.Equal(t, "Primera frase.", Shorten(text, 100))
}

func TestShorten_SentenceEndPastLimitTruncates(t *testing.T) {
	text := strings.Repeat("a", 50) + ". " + strings.Repeat("b", 50)
	got := Shorten(text, 20)
	assert.Equal(t, strings.Repeat("a", 17)+"...", got)
}

func TestShorten_TruncatesWithEllipsis(t *testing.T) {
	text := strings.Repeat("palabra ", 100)
	got := Shorten(text, 40)
	require.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 40)
}

func TestShorten_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("á", 30)
	got := Shorten(text, 10)
	assert.Equal(t, strings.Repeat("á", 7)+"...", got)
}

func TestExcerpt_CollapsesWhitespace(t *testing.T) {
	out, err := Excerpt{}.SpanishExcerpt("hola   mundo\n\nfinal", 400)
	require.NoError(t, err)
	assert.Equal(t, "hola mundo final", out)
}
