package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSummary_RemovesURLsAndHashtags(t *testing.T) {
	in := "Explosión en el puerto https://example.com/n/1 #breaking\nvia Reuters\nSegunda línea."
	out := CleanSummary(in)

	assert.Equal(t, "Explosión en el puerto Segunda línea.", out)
	assert.NotContains(t, out, "http")
	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "via")
}

func TestCleanSummary_KeepsFirstTwoSentences(t *testing.T) {
	in := "Primera frase. Segunda frase! Tercera frase que sobra. Cuarta."
	assert.Equal(t, "Primera frase. Segunda frase!", CleanSummary(in))
}

func TestCleanSummary_TruncatesLongText(t *testing.T) {
	in := strings.Repeat("palabra ", 120)
	out := CleanSummary(in)

	assert.LessOrEqual(t, len([]rune(out)), 600)
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestCleanSummary_Empty(t *testing.T) {
	assert.Equal(t, "", CleanSummary(""))
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"Hola."}, SplitSentences("Hola."))
	assert.Equal(t, []string{"Uno.", "Dos?", "Tres"}, SplitSentences("Uno. Dos?  Tres"))
	assert.Equal(t, []string{"Sin terminador y nada mas"}, SplitSentences("Sin terminador y nada mas"))
}

func TestSlugCountry(t *testing.T) {
	assert.Equal(t, "libia", SlugCountry("Libia"))
	assert.Equal(t, "libia", SlugCountry("LIBYA"))
	assert.Equal(t, "haiti", SlugCountry("Haití"))
	assert.Equal(t, "campello", SlugCountry("El Campello"))
	assert.Equal(t, "mali", SlugCountry("Malí"))
	assert.Equal(t, "gaza", SlugCountry(" Gaza "))
	assert.Equal(t, "somalia", SlugCountry("Somalia"))
	assert.Equal(t, "", SlugCountry(""))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Libia", Capitalize("libia"))
	assert.Equal(t, "Libia", Capitalize("LIBIA"))
	assert.Equal(t, "", Capitalize(""))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "tripoli", Fold("Trípoli"))
	assert.Equal(t, "ain zara", Fold("  Ain   Zara "))
}

func TestRemoveNoiseLines(t *testing.T) {
	in := "Titular importante\nInstall PWA using Add to Home Screen\nCuerpo de la noticia"
	out := RemoveNoiseLines(in)

	assert.Contains(t, out, "Titular importante")
	assert.Contains(t, out, "Cuerpo de la noticia")
	assert.NotContains(t, out, "PWA")
}

func TestStripNoise(t *testing.T) {
	in := "Línea   con    espacios\n\n\nAdd to Home Screen in iOS Safari\nOtra línea"
	out := StripNoise(in)

	assert.Equal(t, "Línea con espacios\nOtra línea", out)
}

func TestExtractURLs(t *testing.T) {
	in := "ver https://a.example/x y también HTTP://b.example/y fin"
	urls := ExtractURLs(in)

	assert.Equal(t, []string{"https://a.example/x", "HTTP://b.example/y"}, urls)
	assert.Nil(t, ExtractURLs("sin enlaces"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "ataque en trípoli", NormalizeKey("  Ataque   EN\tTrípoli "))
	assert.Equal(t, NormalizeKey("Mismo  cuerpo"), NormalizeKey("mismo cuerpo"))
}

func TestNormalize(t *testing.T) {
	in := "• Ataque con bomba en Trípoli https://x.example #urgente ,"
	assert.Equal(t, "Ataque con bomba en Trípoli", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
