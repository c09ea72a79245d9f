// Package weather fetches current conditions from OpenWeatherMap with
// per-location rate limiting, caching, and circuit breaking.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spotsync/discovery/internal/discovery"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/cache"
	"github.com/spotsync/discovery/internal/platform/observability"
	"github.com/spotsync/discovery/internal/platform/resilience"
)

// ServiceConfig holds weather service configuration.
type ServiceConfig struct {
	BaseURL        string
	APIKey         string
	RequestsPerMin int
	RateWindow     time.Duration
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	RetryConfig    resilience.RetryConfig
	HTTPClient     *http.Client

	// WarmupPoints are pre-fetched into the cache at startup.
	WarmupPoints []geo.Point
}

// DefaultServiceConfig returns default weather service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BaseURL:        "https://api.openweathermap.org/data/2.5",
		RequestsPerMin: 5,
		RateWindow:     time.Minute,
		CacheTTL:       5 * time.Minute,
		RequestTimeout: 10 * time.Second,
		RetryConfig:    resilience.DefaultRetryConfig(),
	}
}

// Service provides current weather conditions for a coordinate. Lookups
// are cached per rounded location and rate limited so a burst of nearby
// requests costs at most one upstream call per window slot.
type Service struct {
	baseURL        string
	apiKey         string
	client         *http.Client
	limiter        *resilience.WindowLimiter
	breaker        *resilience.CircuitBreaker
	retryConfig    resilience.RetryConfig
	store          cache.Cache
	cacheTTL       time.Duration
	requestTimeout time.Duration
	warmupPoints   []geo.Point
	logger         *observability.Logger
	metrics        *observability.Metrics
}

// NewService creates a weather service. The cache may be nil, in which
// case every lookup goes upstream (subject to the rate limit).
func NewService(cfg ServiceConfig, store cache.Cache, logger *observability.Logger, metrics *observability.Metrics) *Service {
	def := DefaultServiceConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = def.RequestsPerMin
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.RetryConfig.MaxAttempts <= 0 {
		cfg.RetryConfig = def.RetryConfig
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	s := &Service{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		client:         cfg.HTTPClient,
		limiter:        resilience.NewWindowLimiter(cfg.RequestsPerMin, cfg.RateWindow),
		retryConfig:    cfg.RetryConfig,
		store:          store,
		cacheTTL:       cfg.CacheTTL,
		requestTimeout: cfg.RequestTimeout,
		warmupPoints:   cfg.WarmupPoints,
		logger:         logger,
		metrics:        metrics,
	}

	s.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name: "weather",
		OnStateChange: func(from, to resilience.State) {
			logger.LogWarn(context.Background(), "Weather circuit breaker state changed",
				"from", from.String(), "to", to.String())
			metrics.SetCircuitBreakerState(context.Background(), "weather", int64(to))
		},
	})

	return s
}

// Name identifies the service for cache warming.
func (s *Service) Name() string {
	return "weather"
}

// RegisterCacheTypes registers the package's cached payload types so a
// shared Redis tier deserializes them back into their concrete types.
func RegisterCacheTypes() {
	cache.RegisterCacheType((*Snapshot)(nil))
}

// Current returns the current conditions at pt, serving from cache when a
// fresh snapshot exists.
func (s *Service) Current(ctx context.Context, pt geo.Point) (*Snapshot, error) {
	if err := pt.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", discovery.ErrValidation, err)
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: weather API key not set", discovery.ErrConfiguration)
	}

	// Rate-limit check comes before the cache check so quota accounting
	// is identical whether or not a snapshot is cached.
	if !s.limiter.Allow(pt.Key()) {
		s.metrics.RecordRateLimitRejection(ctx, "weather")
		return nil, fmt.Errorf("%w: weather quota for %s resets at %s",
			discovery.ErrRateLimited, pt.Key(), s.limiter.ResetAt(pt.Key()).Format(time.RFC3339))
	}

	cacheKey := "weather:current:" + pt.Key()
	if s.store != nil {
		if cached, err := s.store.Get(ctx, cacheKey); err == nil {
			if snap, ok := cached.(*Snapshot); ok {
				s.metrics.RecordCacheHit(ctx, "weather")
				return snap, nil
			}
		}
		s.metrics.RecordCacheMiss(ctx, "weather")
	}

	snap, err := resilience.RetryIfWithResult(ctx, s.retryConfig, resilience.IsRetryable,
		func(ctx context.Context) (*Snapshot, error) {
			return resilience.ExecuteWithResult(s.breaker, ctx, func(ctx context.Context) (*Snapshot, error) {
				return resilience.Bounded(ctx, s.requestTimeout, func(ctx context.Context) (*Snapshot, error) {
					return s.fetch(ctx, pt)
				})
			})
		})
	if err != nil {
		s.metrics.RecordError(ctx, "weather")
		s.logger.LogError(ctx, "Weather lookup failed", err, "location", pt.Key())
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", discovery.ErrUnavailable, err)
	}

	if s.store != nil {
		if err := s.store.Set(ctx, cacheKey, snap, s.cacheTTL); err != nil {
			s.logger.LogWarn(ctx, "Failed to cache weather snapshot", "error", err)
		}
	}

	return snap, nil
}

// Warmup pre-fetches conditions for the configured locations.
func (s *Service) Warmup(ctx context.Context) error {
	var lastErr error
	for _, pt := range s.warmupPoints {
		if _, err := s.Current(ctx, pt); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// currentConditionsResponse mirrors the upstream current-weather payload.
type currentConditionsResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// fetch performs a single upstream request without retries.
func (s *Service) fetch(ctx context.Context, pt geo.Point) (*Snapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(pt.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(pt.Lon, 'f', -1, 64))
	params.Set("appid", s.apiKey)
	params.Set("units", "metric")

	reqURL := fmt.Sprintf("%s/weather?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		s.metrics.RecordUpstreamCall(ctx, "openweathermap", "current", "error", duration)
		return nil, &discovery.TransientError{Op: "weather: current", Err: err}
	}
	defer resp.Body.Close()

	s.metrics.RecordUpstreamCall(ctx, "openweathermap", "current", strconv.Itoa(resp.StatusCode), duration)

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("status code %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &discovery.TransientError{Op: "weather: current", Err: statusErr}
		}
		return nil, &discovery.PermanentError{Op: "weather: current", Err: statusErr}
	}

	var body currentConditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &discovery.PermanentError{Op: "weather: decode", Err: err}
	}

	return newSnapshot(&body), nil
}

// newSnapshot converts an upstream payload into display units.
func newSnapshot(body *currentConditionsResponse) *Snapshot {
	snap := &Snapshot{
		City:     body.Name,
		Humidity: body.Main.Humidity,
		WindKph:  windKph(body.Wind.Speed),
	}
	snap.TemperatureC, snap.TemperatureF = fahrenheitFromCelsius(body.Main.Temp)

	if len(body.Weather) > 0 {
		snap.Description = body.Weather[0].Description
		snap.Icon = IconName(body.Weather[0].Icon)
	}

	return snap
}
