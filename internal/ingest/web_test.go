package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

const longParagraph = "Los enfrentamientos entre grupos armados dejaron varios heridos en el centro de la ciudad durante la noche."

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func newWebSource(pages ...PageConfig) *WebSource {
	return NewWebSource(
		SourceConfig{Name: "portales", Type: "web", Pais: "Libia", Pages: pages},
		rate.NewLimiter(rate.Inf, 1),
		nopLogger(),
	)
}

func crawlSite(extra string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Portada</title></head><body>
<a href="/a">nota</a>
<a href="/b#frag">otra</a>
%s
</body></html>`, extra)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Choques en Bengasi</title></head><body><p>%s</p></body></html>`, longParagraph)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Protesta en Tr&iacute;poli</title></head><body><p>%s</p></body></html>`, longParagraph)
	})
	return mux
}

func TestWebSource_Fetch_CrawlsSameDomain(t *testing.T) {
	server := httptest.NewServer(crawlSite(""))
	defer server.Close()

	source := newWebSource(PageConfig{URL: server.URL + "/", MaxPages: 2, MinContentLen: 50})
	feeds, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	first := feeds[0]
	assert.Equal(t, "portales", first.Source)
	assert.Equal(t, "Libia", first.Pais)
	assert.Equal(t, "WEB "+server.URL+"/a", first.Channel)
	assert.Equal(t, "Choques en Bengasi\n\n"+longParagraph, first.Text)

	assert.Equal(t, "WEB "+server.URL+"/b", feeds[1].Channel)
	assert.Contains(t, feeds[1].Text, "Protesta en Trípoli")
}

func TestWebSource_Fetch_StopsAtMaxPages(t *testing.T) {
	server := httptest.NewServer(crawlSite(""))
	defer server.Close()

	source := newWebSource(PageConfig{URL: server.URL + "/", MaxPages: 1, MinContentLen: 50})
	feeds, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "WEB "+server.URL+"/a", feeds[0].Channel)
}

func TestWebSource_Fetch_IgnoresOffsiteLinks(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		crawlSite(`<a href="https://otro.example/x">fuera</a>`).ServeHTTP(w, r)
	})
	server := httptest.NewServer(counted)
	defer server.Close()

	source := newWebSource(PageConfig{URL: server.URL + "/", MaxPages: 2, MinContentLen: 50})
	feeds, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, feeds, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"/": 1, "/a": 1, "/b": 1}, hits)
}

func TestWebSource_Fetch_RejectsShortContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Portada</title></head><body><p>breve</p></body></html>`)
	}))
	defer server.Close()

	source := newWebSource(PageConfig{URL: server.URL + "/", MaxPages: 1, MinContentLen: 50})
	feeds, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, feeds)
}

func TestExtractArticle_JSONLD(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"@type": "NewsArticle", "headline": "Ataque en el puerto", "articleBody": "Un artefacto detonó cerca del muelle principal."}
</script></head><body><p>` + longParagraph + `</p></body></html>`

	art := extractArticle(parseHTML(t, page), "https://www.reuters.com/world/x")
	assert.Equal(t, "Ataque en el puerto", art.title)
	assert.Equal(t, "Un artefacto detonó cerca del muelle principal.", art.content)
}

func TestExtractArticle_JSONLDList(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
[{"@type": "WebPage"}, {"@type": ["Article"], "name": "Balance diario", "articleBody": ["Primera parte.", "Segunda parte."]}]
</script></head><body></body></html>`

	art := extractArticle(parseHTML(t, page), "https://reuters.com/world/y")
	assert.Equal(t, "Balance diario", art.title)
	assert.Equal(t, "Primera parte.\nSegunda parte.", art.content)
}

func TestExtractArticle_JSONLDFallsBackToGeneric(t *testing.T) {
	page := `<html><head><title>Sin datos estructurados</title></head><body><p>` + longParagraph + `</p></body></html>`

	art := extractArticle(parseHTML(t, page), "https://reuters.com/world/z")
	assert.Equal(t, "Sin datos estructurados", art.title)
	assert.Equal(t, longParagraph, art.content)
}

func TestExtractArticle_NewsStory(t *testing.T) {
	page := `<html><body>
<div class="node node--type-news-story node--view-mode-full">
  <h1> Reparto de ayuda </h1>
  <p>Primer párrafo del comunicado.</p>
  <ul><li>Punto uno.</li></ul>
</div>
</body></html>`

	art := extractArticle(parseHTML(t, page), "https://www.unrwa.org/newsroom/x")
	assert.Equal(t, "Reparto de ayuda", art.title)
	assert.Equal(t, "Primer párrafo del comunicado.\nPunto uno.", art.content)
}

func TestExtractArticle_GenericPrefersOGTitle(t *testing.T) {
	page := `<html><head>
<title>Portal | Inicio</title>
<meta property="og:title" content="Cierre de carretera costera"/>
</head><body><p>` + longParagraph + `</p></body></html>`

	art := extractArticle(parseHTML(t, page), "https://example.org/news/1")
	assert.Equal(t, "Cierre de carretera costera", art.title)
	assert.Equal(t, longParagraph, art.content)
}

func TestNormalizeURL(t *testing.T) {
	base := "https://example.org/news/index.html"
	cases := []struct {
		href string
		want string
	}{
		{"/a", "https://example.org/a"},
		{"b.html", "https://example.org/news/b.html"},
		{"https://example.org/c#sec", "https://example.org/c"},
		{"#top", ""},
		{"mailto:x@example.org", ""},
		{"javascript:void(0)", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeURL(base, tc.href), "href %q", tc.href)
	}
}

func TestSameDomain(t *testing.T) {
	assert.True(t, sameDomain("https://example.org/a", "https://example.org/b"))
	assert.False(t, sameDomain("https://example.org/a", "https://otro.example/b"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "reuters.com", hostOf("https://www.reuters.com/world/x"))
	assert.Equal(t, "unrwa.org", hostOf("https://unrwa.org/newsroom"))
}
