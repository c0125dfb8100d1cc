package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"opsintel/models"
)

// article is one scraped page reduced to headline and body text.
type article struct {
	url     string
	title   string
	content string
}

func (a article) text() string {
	switch {
	case a.title != "" && a.content != "":
		return a.title + "\n\n" + a.content
	case a.title != "":
		return a.title
	default:
		return a.content
	}
}

// WebSource scrapes the configured news pages. Plain pages go through a
// bounded same-domain crawl, script-heavy pages render in a headless
// browser first.
type WebSource struct {
	name    string
	pais    string
	pages   []PageConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewWebSource(cfg SourceConfig, limiter *rate.Limiter, logger *zerolog.Logger) *WebSource {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WebSource{
		name:    cfg.Name,
		pais:    cfg.Pais,
		pages:   cfg.Pages,
		client:  newHTTPClient(),
		limiter: limiter,
		logger:  logger,
	}
}

func (s *WebSource) Name() string {
	return s.name
}

func (s *WebSource) Fetch(ctx context.Context) ([]models.RawFeed, error) {
	var out []models.RawFeed
	for _, page := range s.pages {
		if err := s.limiter.Wait(ctx); err != nil {
			return out, err
		}
		var articles []article
		var err error
		if page.Render {
			articles, err = s.renderPage(ctx, page)
		} else {
			articles, err = s.crawl(ctx, page)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("url", page.URL).Msg("web fetch failed")
			continue
		}
		now := time.Now()
		for _, art := range articles {
			text := art.text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			out = append(out, models.RawFeed{
				Source:    s.name,
				Pais:      s.pais,
				Channel:   "WEB " + art.url,
				FetchedAt: now,
				Text:      text,
			})
		}
	}
	return out, nil
}

// crawl walks same-domain links from the start page breadth-first in
// small concurrent waves until enough articles are accepted or the
// visit budget runs out.
func (s *WebSource) crawl(ctx context.Context, page PageConfig) ([]article, error) {
	maxVisits := page.MaxPages * visitFactor
	if maxVisits < page.MaxPages {
		maxVisits = page.MaxPages
	}
	queueCap := queueLimit
	if maxVisits*2 > queueCap {
		queueCap = maxVisits * 2
	}

	type visit struct {
		url  string
		body string
		err  error
	}

	seen := map[string]bool{}
	queue := []string{page.URL}
	var results []article
	visits := 0

	for len(queue) > 0 && len(results) < page.MaxPages && visits < maxVisits {
		var wave []string
		for len(queue) > 0 && len(wave) < fetchConcurrency && visits+len(wave) < maxVisits {
			next := queue[0]
			queue = queue[1:]
			if seen[next] {
				continue
			}
			seen[next] = true
			wave = append(wave, next)
		}
		if len(wave) == 0 {
			break
		}

		visited := make([]visit, len(wave))
		var wg sync.WaitGroup
		for i, pageURL := range wave {
			wg.Add(1)
			go func(i int, pageURL string) {
				defer wg.Done()
				body, err := s.get(ctx, pageURL)
				visited[i] = visit{url: pageURL, body: body, err: err}
			}(i, pageURL)
		}
		wg.Wait()

		for _, v := range visited {
			visits++
			if v.err != nil {
				s.logger.Debug().Err(v.err).Str("url", v.url).Msg("page fetch failed")
				continue
			}
			doc, err := html.Parse(strings.NewReader(v.body))
			if err != nil {
				continue
			}
			art := extractArticle(doc, v.url)
			if art.title != "" && utf8.RuneCountInString(art.content) >= page.MinContentLen {
				results = append(results, art)
				if len(results) >= page.MaxPages {
					break
				}
			}
			for _, href := range extractLinks(doc) {
				normalized := normalizeURL(v.url, href)
				if normalized == "" || seen[normalized] || !sameDomain(page.URL, normalized) {
					continue
				}
				if len(queue) >= queueCap {
					break
				}
				queue = append(queue, normalized)
			}
		}
	}
	return results, nil
}

func (s *WebSource) get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// renderPage loads one page in headless Chrome and extracts from the
// rendered DOM. Sites that assemble their articles client side never
// yield anything over plain HTTP.
func (s *WebSource) renderPage(ctx context.Context, page PageConfig) ([]article, error) {
	renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-plugins", true),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1280, 1024),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(renderCtx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var rendered string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(page.URL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered html: %w", err)
	}
	art := extractArticle(doc, page.URL)
	if art.title == "" || utf8.RuneCountInString(art.content) < page.MinContentLen {
		return nil, nil
	}
	return []article{art}, nil
}
