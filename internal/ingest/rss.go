package ingest

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"opsintel/internal/textnorm"
	"opsintel/models"
)

// RSSSource pulls news items from one or more RSS or Atom feeds. Each
// item becomes a single entry carrying title, sanitized summary and
// link.
type RSSSource struct {
	name    string
	pais    string
	urls    []string
	parser  *gofeed.Parser
	limiter *rate.Limiter
	policy  *bluemonday.Policy
	logger  *zerolog.Logger
}

func NewRSSSource(cfg SourceConfig, limiter *rate.Limiter, logger *zerolog.Logger) *RSSSource {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	return &RSSSource{
		name:    cfg.Name,
		pais:    cfg.Pais,
		urls:    cfg.URLs,
		parser:  fp,
		limiter: limiter,
		policy:  bluemonday.StrictPolicy(),
		logger:  logger,
	}
}

func (s *RSSSource) Name() string {
	return s.name
}

// Fetch walks every configured feed URL. A feed that fails to download
// or parse is logged and skipped so one dead feed cannot sink the
// batch.
func (s *RSSSource) Fetch(ctx context.Context) ([]models.RawFeed, error) {
	var out []models.RawFeed
	for _, feedURL := range s.urls {
		if err := s.limiter.Wait(ctx); err != nil {
			return out, err
		}
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", feedURL).Msg("rss fetch failed")
			continue
		}
		channel := strings.TrimSpace(feed.Title)
		if channel == "" {
			channel = feedURL
		}
		for _, item := range feed.Items {
			if entry := s.entryFor(channel, item); entry != nil {
				out = append(out, *entry)
			}
		}
	}
	return out, nil
}

func (s *RSSSource) entryFor(channel string, item *gofeed.Item) *models.RawFeed {
	title := textnorm.CollapseSpaces(s.clean(item.Title))
	body := textnorm.StripNoise(s.clean(item.Description))
	if body == "" {
		body = textnorm.StripNoise(s.clean(item.Content))
	}

	var lines []string
	if title != "" {
		lines = append(lines, title)
	}
	if body != "" && !strings.EqualFold(body, title) {
		lines = append(lines, body)
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		lines = append(lines, link)
	}
	if len(lines) == 0 {
		return nil
	}

	when := time.Now()
	if item.PublishedParsed != nil {
		when = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		when = *item.UpdatedParsed
	}
	return &models.RawFeed{
		Source:    s.name,
		Pais:      s.pais,
		Channel:   channel,
		FetchedAt: when,
		Text:      strings.Join(lines, "\n"),
	}
}

// clean strips markup and decodes the entities bluemonday leaves
// escaped.
func (s *RSSSource) clean(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
