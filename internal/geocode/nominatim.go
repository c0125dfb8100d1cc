package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org/search"
	userAgent      = "opsintel/1.0 (operational feed geocoder)"

	maxResponseBytes = 1 << 20
)

// SearchResult is the top entry of a Nominatim search response.
type SearchResult struct {
	Lat     string            `json:"lat"`
	Lon     string            `json:"lon"`
	Type    string            `json:"type"`
	Address map[string]string `json:"address"`
}

// Admin1 returns the first-level admin area reported for the result.
func (r *SearchResult) Admin1() string {
	return firstNonEmpty(r.Address["state"], r.Address["region"])
}

// Admin2 returns the second-level admin area reported for the result.
func (r *SearchResult) Admin2() string {
	return firstNonEmpty(r.Address["county"], r.Address["city_district"], r.Address["municipality"], r.Address["city"])
}

// StatusError reports a non-success HTTP status from the geocoder.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nominatim returned status %d", e.Code)
}

// RateLimited reports whether the status asks clients to back off.
func (e *StatusError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusServiceUnavailable
}

// NominatimClient queries a Nominatim search endpoint.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewNominatimClient builds a client for the given endpoint. An empty
// baseURL selects the public openstreetmap.org instance, an empty agent
// keeps the default identifier.
func NewNominatimClient(baseURL, agent string) *NominatimClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if agent == "" {
		agent = userAgent
	}
	return &NominatimClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		userAgent:  agent,
	}
}

// Search runs one query and returns the top result. A nil result with
// nil error means the geocoder found nothing for the query.
func (c *NominatimClient) Search(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var items []SearchResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
