package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Canal Libia</title>
    <item>
      <title>Enfrentamientos en Bengasi</title>
      <description><![CDATA[<p>Fuerzas rivales se enfrentaron &amp; hubo cortes de carretera.</p>]]></description>
      <link>https://example.org/a</link>
      <pubDate>Sun, 05 Jan 2025 14:30:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <description></description>
    </item>
    <item>
      <title>Protesta en Tr&#237;poli</title>
      <link>https://example.org/b</link>
    </item>
  </channel>
</rss>`

func newRSSSource(urls ...string) *RSSSource {
	return NewRSSSource(
		SourceConfig{Name: "prensa", Type: "rss", Pais: "Libia", URLs: urls},
		rate.NewLimiter(rate.Inf, 1),
		nopLogger(),
	)
}

func TestRSSSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	feeds, err := newRSSSource(server.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	first := feeds[0]
	assert.Equal(t, "prensa", first.Source)
	assert.Equal(t, "Libia", first.Pais)
	assert.Equal(t, "Canal Libia", first.Channel)
	assert.Equal(t, time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC), first.FetchedAt.UTC())
	assert.Equal(t,
		"Enfrentamientos en Bengasi\nFuerzas rivales se enfrentaron & hubo cortes de carretera.\nhttps://example.org/a",
		first.Text)

	second := feeds[1]
	assert.Equal(t, "Protesta en Trípoli\nhttps://example.org/b", second.Text)
	assert.False(t, second.FetchedAt.IsZero())
}

func TestRSSSource_Fetch_BadFeedSkipped(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer good.Close()

	feeds, err := newRSSSource(bad.URL, good.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, feeds, 2)
}

func TestRSSSource_Fetch_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := NewRSSSource(
		SourceConfig{Name: "prensa", Type: "rss", Pais: "Libia", URLs: []string{server.URL}},
		rate.NewLimiter(rate.Limit(0.001), 1),
		nopLogger(),
	)
	_, err := source.Fetch(ctx)
	assert.Error(t, err)
}
