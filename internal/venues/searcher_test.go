package venues

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spotsync/discovery/internal/discovery"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/cache"
	"github.com/spotsync/discovery/internal/platform/observability"
	"github.com/spotsync/discovery/internal/platform/resilience"
)

const searchBody = `{
	"features": [
		{
			"properties": {"place_id": "place-a", "name": "Alpha Bar", "categories": ["catering.bar", "catering"]},
			"geometry": {"coordinates": [-122.4194, 37.7849]}
		},
		{
			"properties": {"place_id": "place-b", "name": "Zed Cafe", "categories": ["catering.cafe"]},
			"geometry": {"coordinates": [-122.4094, 37.7749]}
		}
	]
}`

const detailsBodyA = `{
	"features": [{
		"properties": {
			"address_line2": "123 Main St, San Francisco",
			"opening_hours": "Mo-Su 10:00-22:00",
			"rating": 4.5,
			"price_range": "moderate",
			"contact": {"phone": "+1-555-0100"},
			"datasource": {"raw": {"website": "https://alphabar.example", "contact:facebook": "alphabar"}}
		}
	}]
}`

// newVenueServer serves a search fixture plus per-venue details, counting
// calls to each endpoint.
func newVenueServer(searchCalls, detailCalls *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/places":
			atomic.AddInt64(searchCalls, 1)
			w.Write([]byte(searchBody))
		case "/place-details":
			atomic.AddInt64(detailCalls, 1)
			if r.URL.Query().Get("id") == "place-a" {
				w.Write([]byte(detailsBodyA))
			} else {
				w.Write([]byte(`{"features": []}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestSearcher(t *testing.T, serverURL string, store cache.Cache) *Searcher {
	t.Helper()

	logger := observability.NewLogger("error", "text")
	metrics, err := observability.NewMetrics("test", false)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	cfg := DefaultSearcherConfig()
	cfg.BaseURL = serverURL
	cfg.APIKey = "test-key"
	cfg.EnrichmentWorkers = 2
	cfg.RetryConfig = resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}

	return NewSearcher(cfg, store, logger, metrics)
}

func TestSearchReturnsEnrichedVenuesSortedByDistance(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	res, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.7749, Lon: -122.4194},
		RadiusMiles: 5,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Degraded {
		t.Error("Expected non-degraded result")
	}
	if len(res.Venues) != 2 {
		t.Fatalf("Expected 2 venues, got %d", len(res.Venues))
	}

	// Zed Cafe is nearer, so it comes first under the default sort.
	if res.Venues[0].Name != "Zed Cafe" {
		t.Errorf("First venue = %q, want Zed Cafe", res.Venues[0].Name)
	}
	if res.Venues[0].DistanceKm >= res.Venues[1].DistanceKm {
		t.Errorf("Venues not sorted by distance: %.1f then %.1f",
			res.Venues[0].DistanceKm, res.Venues[1].DistanceKm)
	}

	alpha := res.Venues[1]
	if alpha.Category != "catering.bar" {
		t.Errorf("Category = %q, want catering.bar", alpha.Category)
	}
	if alpha.Icon != "wine" {
		t.Errorf("Icon = %q, want wine", alpha.Icon)
	}
	if alpha.PriceIcon != "card-outline" {
		t.Errorf("PriceIcon = %q, want card-outline for moderate", alpha.PriceIcon)
	}
	if alpha.Address != "123 Main St, San Francisco" {
		t.Errorf("Address = %q, enrichment not merged", alpha.Address)
	}
	if alpha.Phone != "+1-555-0100" {
		t.Errorf("Phone = %q", alpha.Phone)
	}
	if alpha.Website != "https://alphabar.example" {
		t.Errorf("Website = %q", alpha.Website)
	}
	if alpha.Rating == nil || *alpha.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", alpha.Rating)
	}

	if searchCalls != 1 {
		t.Errorf("Expected 1 search call, got %d", searchCalls)
	}
	if detailCalls != 2 {
		t.Errorf("Expected 2 detail calls, got %d", detailCalls)
	}
}

func TestSearchServesFromCache(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	store := cache.NewMemoryCache(10)
	defer store.Close()

	searcher := newTestSearcher(t, server.URL, store)
	q := Query{Center: geo.Point{Lat: 37.7749, Lon: -122.4194}, RadiusMiles: 5}

	if _, err := searcher.Search(context.Background(), q); err != nil {
		t.Fatalf("First search failed: %v", err)
	}
	res, err := searcher.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Second search failed: %v", err)
	}

	if searchCalls != 1 {
		t.Errorf("Expected 1 upstream search after cache hit, got %d", searchCalls)
	}
	if len(res.Venues) != 2 {
		t.Errorf("Cached result has %d venues, want 2", len(res.Venues))
	}
}

// serializingCache round-trips every value through JSON the way a shared
// Redis tier does, handing back pointers to freshly decoded payloads
// rather than the stored interface values.
type serializingCache struct {
	data map[string][]byte
}

func newSerializingCache() *serializingCache {
	return &serializingCache{data: make(map[string][]byte)}
}

func (c *serializingCache) Get(ctx context.Context, key string) (interface{}, error) {
	raw, ok := c.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	if strings.HasPrefix(key, "venues:search:") {
		var list venueList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return &list, nil
	}
	var details placeDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *serializingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *serializingCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *serializingCache) Close() error { return nil }

func TestSearchCacheSurvivesSerialization(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, newSerializingCache())
	q := Query{Center: geo.Point{Lat: 37.7749, Lon: -122.4194}, RadiusMiles: 5}

	if _, err := searcher.Search(context.Background(), q); err != nil {
		t.Fatalf("First search failed: %v", err)
	}
	res, err := searcher.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Second search failed: %v", err)
	}

	if searchCalls != 1 {
		t.Errorf("Expected deserialized payload to count as a hit, got %d upstream calls", searchCalls)
	}
	if detailCalls != 2 {
		t.Errorf("Expected 2 detail calls total, got %d", detailCalls)
	}
	if len(res.Venues) != 2 {
		t.Fatalf("Deserialized result has %d venues, want 2", len(res.Venues))
	}
	alpha := res.Venues[1]
	if alpha.Rating == nil || *alpha.Rating != 4.5 {
		t.Errorf("Enrichment lost in round trip: rating = %v", alpha.Rating)
	}
}

func TestSearchRejectsWhenRateLimited(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	logger := observability.NewLogger("error", "text")
	metrics, _ := observability.NewMetrics("test", false)

	cfg := DefaultSearcherConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = "test-key"
	cfg.RequestsPerMin = 1
	cfg.EnrichmentWorkers = 2

	searcher := NewSearcher(cfg, nil, logger, metrics)
	q := Query{Center: geo.Point{Lat: 37.7749, Lon: -122.4194}, RadiusMiles: 5}

	if _, err := searcher.Search(context.Background(), q); err != nil {
		t.Fatalf("First search failed: %v", err)
	}

	_, err := searcher.Search(context.Background(), q)
	if !errors.Is(err, discovery.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
	if searchCalls != 1 {
		t.Errorf("Expected no second upstream call, got %d", searchCalls)
	}
}

func TestSearchDegradesToEmptyAfterRetries(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	res, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.7749, Lon: -122.4194},
		RadiusMiles: 5,
	})
	if err != nil {
		t.Fatalf("Expected degraded result, got error: %v", err)
	}
	if !res.Degraded {
		t.Error("Expected Degraded flag after exhausted retries")
	}
	if len(res.Venues) != 0 {
		t.Errorf("Expected empty venue list, got %d", len(res.Venues))
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	tests := []struct {
		name string
		q    Query
	}{
		{"bad latitude", Query{Center: geo.Point{Lat: 999, Lon: 0}, RadiusMiles: 5}},
		{"zero radius", Query{Center: geo.Point{Lat: 37.77, Lon: -122.41}, RadiusMiles: 0}},
		{"oversized radius", Query{Center: geo.Point{Lat: 37.77, Lon: -122.41}, RadiusMiles: 51}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := searcher.Search(context.Background(), tt.q)
			if !errors.Is(err, discovery.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	if searchCalls != 0 {
		t.Errorf("Invalid input reached upstream: %d calls", searchCalls)
	}
}

func TestSearchRequiresAPIKey(t *testing.T) {
	logger := observability.NewLogger("error", "text")
	metrics, _ := observability.NewMetrics("test", false)

	cfg := DefaultSearcherConfig()
	searcher := NewSearcher(cfg, nil, logger, metrics)

	_, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.77, Lon: -122.41},
		RadiusMiles: 5,
	})
	if !errors.Is(err, discovery.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestSearchIsolatesDetailFailures(t *testing.T) {
	var searchCalls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/places":
			atomic.AddInt64(&searchCalls, 1)
			w.Write([]byte(searchBody))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	res, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.7749, Lon: -122.4194},
		RadiusMiles: 5,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res.Venues) != 2 {
		t.Fatalf("Expected 2 venues despite detail failures, got %d", len(res.Venues))
	}
	for _, v := range res.Venues {
		if v.Address != "" || v.Phone != "" {
			t.Errorf("Venue %s unexpectedly enriched after detail failure", v.ID)
		}
	}
}

func TestSearchRequestShape(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/places":
			gotQuery = r.URL.RawQuery
			w.Write([]byte(`{"features": []}`))
		default:
			w.Write([]byte(`{"features": []}`))
		}
	}))
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	_, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.7749, Lon: -122.4194},
		RadiusMiles: 5,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	params, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("Failed to parse query: %v", err)
	}

	// 5 miles converts to 8046.7 meters for the circle filter.
	filter := params.Get("filter")
	if !strings.HasPrefix(filter, "circle:-122.4194,37.7749,") {
		t.Fatalf("filter = %q, want circle around query point", filter)
	}
	radius, err := strconv.ParseFloat(strings.TrimPrefix(filter, "circle:-122.4194,37.7749,"), 64)
	if err != nil {
		t.Fatalf("Failed to parse filter radius: %v", err)
	}
	if math.Abs(radius-8046.7) > 0.01 {
		t.Errorf("filter radius = %v, want 8046.7", radius)
	}
	if params.Get("limit") != "20" {
		t.Errorf("limit = %q, want 20", params.Get("limit"))
	}
	if !strings.Contains(params.Get("categories"), "catering") ||
		!strings.Contains(params.Get("categories"), "accommodation") {
		t.Errorf("Expected full category list, got %q", params.Get("categories"))
	}
}

func TestSearchFiltersByMinimumRating(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	res, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.7749, Lon: -122.4194},
		RadiusMiles: 5,
		MinRating:   4.0,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// Only Alpha Bar carries a rating; Zed Cafe is unrated and excluded.
	if len(res.Venues) != 1 {
		t.Fatalf("Expected 1 venue after rating filter, got %d", len(res.Venues))
	}
	if res.Venues[0].Name != "Alpha Bar" {
		t.Errorf("Filtered venue = %q, want Alpha Bar", res.Venues[0].Name)
	}
}

func TestSearchSortsByName(t *testing.T) {
	var searchCalls, detailCalls int64
	server := newVenueServer(&searchCalls, &detailCalls)
	defer server.Close()

	searcher := newTestSearcher(t, server.URL, nil)

	res, err := searcher.Search(context.Background(), Query{
		Center:      geo.Point{Lat: 37.7749, Lon: -122.4194},
		RadiusMiles: 5,
		SortBy:      SortByName,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Venues[0].Name != "Alpha Bar" {
		t.Errorf("First venue = %q, want Alpha Bar", res.Venues[0].Name)
	}
}
