package venues

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spotsync/discovery/internal/discovery"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/cache"
	"github.com/spotsync/discovery/internal/platform/observability"
	"github.com/spotsync/discovery/internal/platform/resilience"
	"github.com/spotsync/discovery/internal/platform/worker"
)

// SearcherConfig holds venue search configuration.
type SearcherConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerMin    int
	RateWindow        time.Duration
	SearchCacheTTL    time.Duration
	DetailsCacheTTL   time.Duration
	MaxRadiusMiles    float64
	DefaultLimit      int
	RequestTimeout    time.Duration
	EnrichmentWorkers int
	RetryConfig       resilience.RetryConfig
	HTTPClient        *http.Client

	// WarmupPoints are searched with the default radius at startup.
	WarmupPoints      []geo.Point
	WarmupRadiusMiles float64
}

// DefaultSearcherConfig returns default venue search configuration.
func DefaultSearcherConfig() SearcherConfig {
	return SearcherConfig{
		BaseURL:           "https://api.geoapify.com/v2",
		RequestsPerMin:    3,
		RateWindow:        time.Minute,
		SearchCacheTTL:    10 * time.Minute,
		DetailsCacheTTL:   30 * time.Minute,
		MaxRadiusMiles:    50,
		DefaultLimit:      20,
		RequestTimeout:    12 * time.Second,
		EnrichmentWorkers: 8,
		RetryConfig:       resilience.DefaultRetryConfig(),
		WarmupRadiusMiles: 5,
	}
}

// Query describes one venue search.
type Query struct {
	Center      geo.Point
	RadiusMiles float64

	// Category filters the search; empty means all categories.
	Category string

	// MinRating excludes venues rated below it. Venues with no rating
	// are excluded whenever it is set. Zero means no filter.
	MinRating float64

	SortBy SortKey
	Limit  int
}

// Result is the outcome of one venue search. Degraded distinguishes "no
// venues nearby" from "the search failed repeatedly and returned
// nothing": both carry an empty list, only the latter sets the flag.
type Result struct {
	Venues   []Venue `json:"venues"`
	Degraded bool    `json:"degraded"`
}

// venueList is the cached search payload. A bare []Venue has no reflect
// name to register, so a shared Redis tier would decode it generically
// and every hit would look like a miss; the named wrapper round-trips.
type venueList struct {
	Venues []Venue `json:"venues"`
}

// Searcher orchestrates venue searches: validation, rate limiting,
// caching, the retried upstream call, and the per-venue detail fan-out.
type Searcher struct {
	cfg     SearcherConfig
	client  *Client
	limiter *resilience.WindowLimiter
	breaker *resilience.CircuitBreaker
	store   cache.Cache
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewSearcher creates a venue searcher. The cache may be nil.
func NewSearcher(cfg SearcherConfig, store cache.Cache, logger *observability.Logger, metrics *observability.Metrics) *Searcher {
	def := DefaultSearcherConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = def.RequestsPerMin
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.SearchCacheTTL <= 0 {
		cfg.SearchCacheTTL = def.SearchCacheTTL
	}
	if cfg.DetailsCacheTTL <= 0 {
		cfg.DetailsCacheTTL = def.DetailsCacheTTL
	}
	if cfg.MaxRadiusMiles <= 0 {
		cfg.MaxRadiusMiles = def.MaxRadiusMiles
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.EnrichmentWorkers <= 0 {
		cfg.EnrichmentWorkers = def.EnrichmentWorkers
	}
	if cfg.RetryConfig.MaxAttempts <= 0 {
		cfg.RetryConfig = def.RetryConfig
	}
	if cfg.WarmupRadiusMiles <= 0 {
		cfg.WarmupRadiusMiles = def.WarmupRadiusMiles
	}

	s := &Searcher{
		cfg:     cfg,
		client:  NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient, metrics),
		limiter: resilience.NewWindowLimiter(cfg.RequestsPerMin, cfg.RateWindow),
		store:   store,
		logger:  logger,
		metrics: metrics,
	}

	s.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name: "venues",
		OnStateChange: func(from, to resilience.State) {
			logger.LogWarn(context.Background(), "Venues circuit breaker state changed",
				"from", from.String(), "to", to.String())
			metrics.SetCircuitBreakerState(context.Background(), "venues", int64(to))
		},
	})

	return s
}

// Name identifies the searcher for cache warming.
func (s *Searcher) Name() string {
	return "venues"
}

// RegisterCacheTypes registers the package's cached payload types so a
// shared Redis tier deserializes them back into their concrete types.
func RegisterCacheTypes() {
	cache.RegisterCacheType((*venueList)(nil))
	cache.RegisterCacheType((*placeDetails)(nil))
}

// Search returns venues around the query point. Validation,
// configuration, and rate-limit failures surface as errors; upstream
// failures after all retries degrade to an empty result with the
// Degraded flag set.
func (s *Searcher) Search(ctx context.Context, q Query) (*Result, error) {
	if err := q.Center.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", discovery.ErrValidation, err)
	}
	if q.RadiusMiles <= 0 || q.RadiusMiles > s.cfg.MaxRadiusMiles {
		return nil, fmt.Errorf("%w: radius %.1f outside (0, %.0f] miles",
			discovery.ErrValidation, q.RadiusMiles, s.cfg.MaxRadiusMiles)
	}
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: places API key not set", discovery.ErrConfiguration)
	}

	limiterKey := q.Center.Key()
	if !s.limiter.Allow(limiterKey) {
		s.metrics.RecordRateLimitRejection(ctx, "venues")
		return nil, fmt.Errorf("%w: venue quota for %s resets at %s",
			discovery.ErrRateLimited, limiterKey, s.limiter.ResetAt(limiterKey).Format(time.RFC3339))
	}

	cacheKey := s.searchCacheKey(q)
	if s.store != nil {
		if cached, err := s.store.Get(ctx, cacheKey); err == nil {
			if list, ok := cached.(*venueList); ok {
				s.metrics.RecordCacheHit(ctx, "venues")
				return &Result{Venues: list.Venues}, nil
			}
		}
		s.metrics.RecordCacheMiss(ctx, "venues")
	}

	start := time.Now()

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	categories := strings.TrimSpace(q.Category)
	if categories == "" {
		categories = DefaultCategories()
	}

	radiusMeters := geo.MilesToMeters(q.RadiusMiles)

	features, err := resilience.RetryIfWithResult(ctx, s.cfg.RetryConfig, resilience.IsRetryable,
		func(ctx context.Context) ([]searchFeature, error) {
			return resilience.ExecuteWithResult(s.breaker, ctx, func(ctx context.Context) ([]searchFeature, error) {
				return resilience.Bounded(ctx, s.cfg.RequestTimeout, func(ctx context.Context) ([]searchFeature, error) {
					return s.client.Search(ctx, q.Center, radiusMeters, categories, limit)
				})
			})
		})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.metrics.RecordError(ctx, "venues")
		s.logger.LogError(ctx, "Venue search failed after retries", err, "location", limiterKey)
		return &Result{Venues: []Venue{}, Degraded: true}, nil
	}

	venues := make([]Venue, 0, len(features))
	for i := range features {
		venues = append(venues, newVenue(&features[i], q.Center))
	}

	// Enrichment runs before the rating filter: ratings only exist on
	// enriched records, so filtering earlier would drop everything.
	venues = s.enrichAll(ctx, venues)
	venues = filterByRating(venues, q.MinRating)
	sortVenues(venues, q.SortBy)

	if s.store != nil {
		if err := s.store.Set(ctx, cacheKey, &venueList{Venues: venues}, s.cfg.SearchCacheTTL); err != nil {
			s.logger.LogWarn(ctx, "Failed to cache venue search", "error", err)
		}
	}

	s.metrics.RecordSearch(ctx, len(venues), time.Since(start))
	s.logger.LogDebug(ctx, "Venue search completed",
		"location", limiterKey, "results", len(venues), "duration", time.Since(start))

	return &Result{Venues: venues}, nil
}

// Warmup runs a default search for each configured location.
func (s *Searcher) Warmup(ctx context.Context) error {
	var lastErr error
	for _, pt := range s.cfg.WarmupPoints {
		res, err := s.Search(ctx, Query{Center: pt, RadiusMiles: s.cfg.WarmupRadiusMiles})
		if err != nil {
			lastErr = err
			continue
		}
		if res.Degraded {
			lastErr = discovery.ErrUnavailable
		}
	}
	return lastErr
}

// searchCacheKey derives the cache key from the rounded coordinates,
// radius, and category filter.
func (s *Searcher) searchCacheKey(q Query) string {
	category := strings.TrimSpace(q.Category)
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("venues:search:%s:%s:%s",
		q.Center.Key(), strconv.FormatFloat(q.RadiusMiles, 'f', -1, 64), category)
}

// enrichAll fans out one detail fetch per venue across the worker pool.
// Each fetch is independently cached and independently fault-tolerant: a
// failure leaves that venue's base record unchanged.
func (s *Searcher) enrichAll(ctx context.Context, venues []Venue) []Venue {
	if len(venues) == 0 {
		return venues
	}

	pool := worker.NewPool(ctx, s.cfg.EnrichmentWorkers, len(venues))
	defer pool.Close()

	jobs := make([]worker.Job, len(venues))
	for i := range venues {
		idx := i
		jobs[i] = worker.Job{
			ID: strconv.Itoa(idx),
			Execute: func(ctx context.Context) (interface{}, error) {
				return s.enrich(ctx, venues[idx]), nil
			},
		}
	}

	enriched := make([]Venue, len(venues))
	copy(enriched, venues)

	for _, res := range pool.SubmitAndWait(jobs) {
		idx, err := strconv.Atoi(res.JobID)
		if err != nil || res.Value == nil {
			continue
		}
		if v, ok := res.Value.(Venue); ok {
			enriched[idx] = v
		}
	}

	return enriched
}

// enrich fetches and merges details for one venue, returning the base
// record untouched on any failure.
func (s *Searcher) enrich(ctx context.Context, v Venue) Venue {
	detailsKey := "venues:details:" + v.ID

	if s.store != nil {
		if cached, err := s.store.Get(ctx, detailsKey); err == nil {
			if details, ok := cached.(*placeDetails); ok {
				return mergeDetails(v, details)
			}
		}
	}

	details, err := resilience.Bounded(ctx, s.cfg.RequestTimeout, func(ctx context.Context) (*placeDetails, error) {
		return s.client.Details(ctx, v.ID)
	})
	if err != nil {
		s.metrics.RecordEnrichmentFailure(ctx, "geoapify")
		s.logger.LogDebug(ctx, "Venue detail fetch failed", "venue", v.ID, "error", err)
		return v
	}
	if details == nil {
		return v
	}

	if s.store != nil {
		if err := s.store.Set(ctx, detailsKey, details, s.cfg.DetailsCacheTTL); err != nil {
			s.logger.LogWarn(ctx, "Failed to cache venue details", "error", err)
		}
	}

	return mergeDetails(v, details)
}

// mergeDetails copies enrichment fields onto a venue.
func mergeDetails(v Venue, d *placeDetails) Venue {
	v.Address = d.AddressLine2
	v.Hours = d.OpeningHours
	v.Phone = d.Contact.Phone
	v.Rating = d.Rating
	v.PriceRange = d.PriceRange
	if d.PriceRange != "" {
		v.PriceIcon = PriceRangeIcon(d.PriceRange)
	}
	v.Description = d.Description
	v.Website = d.Datasource.Raw["website"]
	v.Facebook = d.Datasource.Raw["contact:facebook"]
	v.Twitter = d.Datasource.Raw["contact:twitter"]
	v.Instagram = d.Datasource.Raw["contact:instagram"]
	return v
}
