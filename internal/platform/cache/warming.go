// Package cache provides the discovery service's caching tiers and
// startup cache warming.
package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spotsync/discovery/internal/platform/observability"
)

// WarmupProvider is implemented by data providers that can pre-populate
// the cache for well-known locations before the service starts serving.
type WarmupProvider interface {
	// Name returns a human-readable name for logging purposes
	Name() string

	// Warmup pre-populates the cache. It should be idempotent.
	Warmup(ctx context.Context) error
}

// WarmupConfig configures the cache warming behavior.
type WarmupConfig struct {
	// Timeout bounds the whole warmup run
	Timeout time.Duration

	// ContinueOnError determines whether remaining providers still run
	// after one fails
	ContinueOnError bool
}

// DefaultWarmupConfig returns sensible defaults for cache warming.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Timeout:         30 * time.Second,
		ContinueOnError: true,
	}
}

// WarmupResult contains the result of warming a single provider.
type WarmupResult struct {
	Provider string
	Duration time.Duration
	Err      error
}

// WarmupResults contains the aggregate results of cache warming.
type WarmupResults struct {
	Results   []WarmupResult
	TotalTime time.Duration
	Errors    int
}

// HasErrors returns true if any provider failed during warmup.
func (wr *WarmupResults) HasErrors() bool {
	return wr.Errors > 0
}

// Warmer runs registered warmup providers concurrently at startup.
type Warmer struct {
	providers []WarmupProvider
	logger    *observability.Logger
	config    WarmupConfig
}

// NewWarmer creates a new cache warmer.
func NewWarmer(logger *observability.Logger, config WarmupConfig) *Warmer {
	return &Warmer{
		providers: make([]WarmupProvider, 0),
		logger:    logger,
		config:    config,
	}
}

// RegisterProvider adds a warmup provider to the warmer.
func (w *Warmer) RegisterProvider(provider WarmupProvider) {
	w.providers = append(w.providers, provider)
}

// Warmup executes all registered providers and returns aggregate results.
func (w *Warmer) Warmup(ctx context.Context) *WarmupResults {
	start := time.Now()
	results := &WarmupResults{
		Results: make([]WarmupResult, 0, len(w.providers)),
	}

	if len(w.providers) == 0 {
		results.TotalTime = time.Since(start)
		return results
	}

	warmupCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(warmupCtx)
	resultCh := make(chan WarmupResult, len(w.providers))

	for _, provider := range w.providers {
		p := provider
		g.Go(func() error {
			res := w.warmupProvider(gctx, p)
			resultCh <- res
			if res.Err != nil && !w.config.ContinueOnError {
				// Cancel the remaining providers via the group context.
				return res.Err
			}
			return nil
		})
	}

	_ = g.Wait()
	close(resultCh)

	for r := range resultCh {
		results.Results = append(results.Results, r)
		if r.Err != nil {
			results.Errors++
		}
	}

	results.TotalTime = time.Since(start)

	if results.Errors > 0 {
		w.logger.LogWarn(ctx, fmt.Sprintf("Cache warmup completed with %d/%d errors in %v",
			results.Errors, len(w.providers), results.TotalTime))
	} else {
		w.logger.LogInfo(ctx, fmt.Sprintf("Cache warmup completed successfully (%d providers) in %v",
			len(w.providers), results.TotalTime))
	}

	return results
}

// warmupProvider warms a single provider and returns the result.
func (w *Warmer) warmupProvider(ctx context.Context, provider WarmupProvider) WarmupResult {
	start := time.Now()
	name := provider.Name()

	w.logger.LogDebug(ctx, fmt.Sprintf("Warming cache: %s", name))

	err := provider.Warmup(ctx)
	duration := time.Since(start)

	if err != nil {
		w.logger.LogWarn(ctx, fmt.Sprintf("Cache warmup failed for %s: %v (took %v)", name, err, duration))
	}

	return WarmupResult{
		Provider: name,
		Duration: duration,
		Err:      err,
	}
}
