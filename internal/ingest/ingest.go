// Package ingest collects raw feed text from the configured sources:
// dropped txt files, RSS feeds, a Kafka topic and scraped web pages.
// Every source hands back uniform RawFeed entries ready for archiving
// and parsing.
package ingest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"opsintel/models"
)

const (
	userAgent        = "Mozilla/5.0 (compatible; opsintel/1.0; +https://example.local)"
	maxResponseBytes = 2 << 20
	fetchConcurrency = 5
	visitFactor      = 3
	queueLimit       = 5000
	requestTimeout   = 12 * time.Second
	connectTimeout   = 5 * time.Second
	readTimeout      = 10 * time.Second
	renderTimeout    = 30 * time.Second
	kafkaPollTimeout = 5 * time.Second
)

// Source produces raw feed entries for one configured origin. Fetch may
// return partial results together with an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawFeed, error)
}

// NewFromConfig builds one source per config entry. Network sources
// share a token bucket sized from the configured per-minute rate so a
// collection batch cannot hammer upstream hosts.
func NewFromConfig(cfg *SourcesConfig, logger *zerolog.Logger) ([]Source, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	perMinute := cfg.Defaults.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	limiter := rate.NewLimiter(rate.Limit(perMinute/60.0), 1)

	sources := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Type {
		case "file":
			sources = append(sources, NewFileSource(sc))
		case "rss":
			sources = append(sources, NewRSSSource(sc, limiter, logger))
		case "kafka":
			sources = append(sources, NewKafkaSource(sc, logger))
		case "web":
			sources = append(sources, NewWebSource(sc, limiter, logger))
		default:
			return nil, fmt.Errorf("unknown source type %q for %q", sc.Type, sc.Name)
		}
	}
	return sources, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
			ResponseHeaderTimeout: readTimeout,
		},
	}
}
