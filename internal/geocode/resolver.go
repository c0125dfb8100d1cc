// Package geocode resolves free-text place names to coordinates using
// a persistent cache backed by the Nominatim search API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"opsintel/db"
	"opsintel/models"
)

// Nominatim usage policy asks for at most one request per second.
const (
	queryDelay     = 1050 * time.Millisecond
	rateLimitDelay = 5 * time.Second
)

// Resolver resolves place names through the persistent cache first and
// the online geocoder second.
type Resolver struct {
	cache  db.GeocodeCacheRepository
	client *NominatimClient
	clock  clockwork.Clock
	logger *zerolog.Logger
}

// NewResolver wires a resolver. A nil clock selects the real one.
func NewResolver(cache db.GeocodeCacheRepository, client *NominatimClient, clock clockwork.Clock, logger *zerolog.Logger) *Resolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{cache: cache, client: client, clock: clock, logger: logger}
}

// Resolve returns coordinates for a place, or nil with nil error when
// the place does not resolve; the caller leaves such incidents pending.
// Rate limit responses (429/503) wait 5s and move to the next query;
// any other transport failure aborts the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, place, country string) (*models.GeocodeResult, error) {
	if strings.TrimSpace(place) == "" {
		return nil, nil
	}
	canonical := CanonicalCountry(country)
	key := CacheKey(place, canonical)

	entry, err := r.cache.FindByKey(ctx, key)
	if err == nil {
		return &models.GeocodeResult{
			Lat:      entry.Lat,
			Lon:      entry.Lon,
			Admin1:   deref(entry.Admin1),
			Admin2:   deref(entry.Admin2),
			Accuracy: deref(entry.Accuracy),
			Source:   "cache",
		}, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to read geocode cache: %w", err)
	}

	for _, query := range BuildQueries(place, canonical) {
		r.clock.Sleep(queryDelay)

		item, err := r.client.Search(ctx, query)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.RateLimited() {
				r.clock.Sleep(rateLimitDelay)
				continue
			}
			r.logger.Warn().Err(err).Str("query", query).Msg("geocoder aborted")
			return nil, nil
		}
		if item == nil {
			continue
		}
		lat, latErr := strconv.ParseFloat(item.Lat, 64)
		lon, lonErr := strconv.ParseFloat(item.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		result := &models.GeocodeResult{
			Lat:      lat,
			Lon:      lon,
			Admin1:   item.Admin1(),
			Admin2:   item.Admin2(),
			Accuracy: item.Type,
			Source:   "nominatim",
		}
		if err := r.cache.Upsert(ctx, cacheEntry(key, canonical, result)); err != nil {
			return nil, fmt.Errorf("failed to cache geocode result: %w", err)
		}
		r.logger.Debug().Str("query", query).Float64("lat", lat).Float64("lon", lon).Msg("geocoded place")
		return result, nil
	}
	return nil, nil
}

func cacheEntry(key, country string, result *models.GeocodeResult) *models.GeocodeCacheEntry {
	entry := &models.GeocodeCacheEntry{
		Key:    key,
		Lat:    result.Lat,
		Lon:    result.Lon,
		Source: result.Source,
	}
	if country != "" {
		entry.Country = &country
	}
	if result.Admin1 != "" {
		entry.Admin1 = &result.Admin1
	}
	if result.Admin2 != "" {
		entry.Admin2 = &result.Admin2
	}
	if result.Accuracy != "" {
		entry.Accuracy = &result.Accuracy
	}
	return entry
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
