package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsintel/db"
	"opsintel/models"
)

type memCache struct {
	entries map[string]*models.GeocodeCacheEntry
	findErr error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*models.GeocodeCacheEntry)}
}

func (m *memCache) FindByKey(_ context.Context, key string) (*models.GeocodeCacheEntry, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if e, ok := m.entries[key]; ok {
		return e, nil
	}
	return nil, db.ErrNotFound
}

func (m *memCache) Upsert(_ context.Context, entry *models.GeocodeCacheEntry) error {
	m.entries[entry.Key] = entry
	return nil
}

func (m *memCache) Close() error { return nil }

// autoAdvance releases the resolver's sleeps as soon as they start so
// tests run without real delays.
func autoAdvance(clock *clockwork.FakeClock) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			if err := clock.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			clock.Advance(10 * time.Second)
		}
	}()
	return cancel
}

func TestResolver_CacheHit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	admin1 := "Tripoli District"
	cache := newMemCache()
	cache.entries["trípoli||libya"] = &models.GeocodeCacheEntry{
		Key: "trípoli||libya", Lat: 32.8872, Lon: 13.1913, Admin1: &admin1, Source: "nominatim",
	}

	r := NewResolver(cache, NewNominatimClient(server.URL, ""), clockwork.NewFakeClock(), nil)
	result, err := r.Resolve(context.Background(), "Trípoli", "libia")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "cache", result.Source)
	assert.InDelta(t, 32.8872, result.Lat, 1e-9)
	assert.Equal(t, "Tripoli District", result.Admin1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestResolver_NominatimSuccessCachesResult(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `[{"lat":"32.8872","lon":"13.1913","type":"city",`+
			`"address":{"state":"Tripoli District","county":"Tripoli"}}]`)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	stop := autoAdvance(clock)
	defer stop()

	cache := newMemCache()
	r := NewResolver(cache, NewNominatimClient(server.URL, ""), clock, nil)
	result, err := r.Resolve(context.Background(), "Trípoli", "libia")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "nominatim", result.Source)
	assert.InDelta(t, 32.8872, result.Lat, 1e-9)
	assert.InDelta(t, 13.1913, result.Lon, 1e-9)
	assert.Equal(t, "Tripoli District", result.Admin1)
	assert.Equal(t, "Tripoli", result.Admin2)
	assert.Equal(t, "city", result.Accuracy)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stored, ok := cache.entries["trípoli||libya"]
	require.True(t, ok)
	assert.InDelta(t, 13.1913, stored.Lon, 1e-9)
	require.NotNil(t, stored.Country)
	assert.Equal(t, "Libya", *stored.Country)
	assert.Equal(t, "nominatim", stored.Source)
}

func TestResolver_RateLimitTriesNextQuery(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[{"lat":"32.1167","lon":"20.0667","type":"city","address":{}}]`)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	stop := autoAdvance(clock)
	defer stop()

	r := NewResolver(newMemCache(), NewNominatimClient(server.URL, ""), clock, nil)
	result, err := r.Resolve(context.Background(), "Bengasi", "libia")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "nominatim", result.Source)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolver_TransportErrorAborts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	stop := autoAdvance(clock)
	defer stop()

	r := NewResolver(newMemCache(), NewNominatimClient(server.URL, ""), clock, nil)
	result, err := r.Resolve(context.Background(), "Bengasi", "libia")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResolver_AllQueriesEmpty(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	clock := clockwork.NewFakeClock()
	stop := autoAdvance(clock)
	defer stop()

	r := NewResolver(newMemCache(), NewNominatimClient(server.URL, ""), clock, nil)
	result, err := r.Resolve(context.Background(), "Bengasi", "libia")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolver_EmptyPlace(t *testing.T) {
	r := NewResolver(newMemCache(), NewNominatimClient("", ""), clockwork.NewFakeClock(), nil)
	result, err := r.Resolve(context.Background(), "   ", "libia")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestResolver_CacheReadErrorPropagates(t *testing.T) {
	cache := newMemCache()
	cache.findErr = errors.New("disk i/o error")

	r := NewResolver(cache, NewNominatimClient("", ""), clockwork.NewFakeClock(), nil)
	_, err := r.Resolve(context.Background(), "Trípoli", "libia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read geocode cache")
}
