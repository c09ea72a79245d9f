package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Upstream API metrics
	UpstreamAPICalls    metric.Int64Counter
	UpstreamAPIDuration metric.Float64Histogram

	// Search metrics
	SearchDuration metric.Float64Histogram
	SearchResults  metric.Int64Counter

	// Enrichment metrics
	EnrichmentFailures metric.Int64Counter

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Rate limiter metrics
	RateLimitRejections metric.Int64Counter

	// Circuit breaker metrics
	CircuitBreakerState metric.Int64Gauge

	// Error metrics
	Errors metric.Int64Counter

	// Prometheus exporter for HTTP handler
	exporter *prometheus.Exporter
}

// NewMetrics creates a new Metrics instance
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	meter := provider.Meter(serviceName)

	m := &Metrics{
		meter:    meter,
		exporter: exporter,
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// initMetrics initializes all metric instruments
func (m *Metrics) initMetrics() error {
	var err error

	m.UpstreamAPICalls, err = m.meter.Int64Counter(
		"discovery.upstream.api.calls",
		metric.WithDescription("Total upstream API calls"),
	)
	if err != nil {
		return err
	}

	m.UpstreamAPIDuration, err = m.meter.Float64Histogram(
		"discovery.upstream.api.duration",
		metric.WithDescription("Upstream API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.SearchDuration, err = m.meter.Float64Histogram(
		"discovery.search.duration",
		metric.WithDescription("End-to-end venue search duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.SearchResults, err = m.meter.Int64Counter(
		"discovery.search.results",
		metric.WithDescription("Total venues returned by searches"),
	)
	if err != nil {
		return err
	}

	m.EnrichmentFailures, err = m.meter.Int64Counter(
		"discovery.enrichment.failures",
		metric.WithDescription("Per-venue detail fetches that failed"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"discovery.cache.hits",
		metric.WithDescription("Cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"discovery.cache.misses",
		metric.WithDescription("Cache misses"),
	)
	if err != nil {
		return err
	}

	m.RateLimitRejections, err = m.meter.Int64Counter(
		"discovery.ratelimit.rejections",
		metric.WithDescription("Requests rejected by the per-location rate limiter"),
	)
	if err != nil {
		return err
	}

	m.CircuitBreakerState, err = m.meter.Int64Gauge(
		"discovery.circuitbreaker.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=open, 2=half-open)"),
	)
	if err != nil {
		return err
	}

	m.Errors, err = m.meter.Int64Counter(
		"discovery.errors",
		metric.WithDescription("Total errors by component"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordUpstreamCall records an upstream API call with its outcome
func (m *Metrics) RecordUpstreamCall(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m.UpstreamAPICalls == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.UpstreamAPICalls.Add(ctx, 1, attrs)
	m.UpstreamAPIDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordSearch records a completed venue search
func (m *Metrics) RecordSearch(ctx context.Context, results int, duration time.Duration) {
	if m.SearchDuration == nil {
		return
	}
	m.SearchDuration.Record(ctx, float64(duration.Milliseconds()))
	m.SearchResults.Add(ctx, int64(results))
}

// RecordEnrichmentFailure records a failed per-venue detail fetch
func (m *Metrics) RecordEnrichmentFailure(ctx context.Context, provider string) {
	if m.EnrichmentFailures == nil {
		return
	}
	m.EnrichmentFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(ctx context.Context, component string) {
	if m.CacheHits == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(ctx context.Context, component string) {
	if m.CacheMisses == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// RecordRateLimitRejection records a rejected request
func (m *Metrics) RecordRateLimitRejection(ctx context.Context, component string) {
	if m.RateLimitRejections == nil {
		return
	}
	m.RateLimitRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// SetCircuitBreakerState records a circuit breaker state change
func (m *Metrics) SetCircuitBreakerState(ctx context.Context, name string, state int64) {
	if m.CircuitBreakerState == nil {
		return
	}
	m.CircuitBreakerState.Record(ctx, state, metric.WithAttributes(attribute.String("breaker", name)))
}

// RecordError records an error by component
func (m *Metrics) RecordError(ctx context.Context, component string) {
	if m.Errors == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
