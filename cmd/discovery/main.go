package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spotsync/discovery/internal/api"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/cache"
	"github.com/spotsync/discovery/internal/platform/config"
	"github.com/spotsync/discovery/internal/platform/observability"
	"github.com/spotsync/discovery/internal/session"
	"github.com/spotsync/discovery/internal/venues"
	"github.com/spotsync/discovery/internal/weather"
)

// venueParams is the refreshable parameter set for the default-location
// venue store.
type venueParams struct {
	RadiusMiles float64
	Category    string
	SortBy      venues.SortKey
}

func main() {
	// Create root context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	log.Println("Loading configuration...")
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	// Setup observability (foundational - must be first)
	log.Println("Setting up observability...")
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("discovery", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracer, err := observability.NewTracerProvider(ctx, "discovery", cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer tracer.Shutdown(ctx)

	logger.Info("observability setup complete")

	// Setup cache tiers
	logger.Info("setting up caches...")
	weather.RegisterCacheTypes()
	venues.RegisterCacheTypes()

	memCache := cache.NewMemoryCache(cfg.Cache.MaxEntries)
	defer memCache.Close()

	var store cache.Cache = memCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.LogError(ctx, "failed to create Redis cache", err)
			log.Fatalf("Failed to create Redis cache: %v", err)
		}
		defer redisCache.Close()
		store = cache.NewLayeredCache(memCache, redisCache)
	}

	warmupPoints := make([]geo.Point, len(cfg.Cache.WarmupLocations))
	for i, loc := range cfg.Cache.WarmupLocations {
		warmupPoints[i] = geo.Point{Lat: loc.Lat, Lon: loc.Lon}
	}

	// Create orchestrators
	logger.Info("creating orchestrators...")
	weatherSvc := weather.NewService(weather.ServiceConfig{
		BaseURL:        cfg.Weather.BaseURL,
		APIKey:         cfg.Weather.APIKey,
		RequestsPerMin: cfg.Weather.RateLimit.RequestsPerWindow,
		RateWindow:     cfg.Weather.RateLimit.Window,
		CacheTTL:       cfg.Weather.CacheTTL,
		RequestTimeout: cfg.Weather.RequestTimeout,
		WarmupPoints:   warmupPoints,
	}, store, logger, metrics)

	searcher := venues.NewSearcher(venues.SearcherConfig{
		BaseURL:           cfg.Places.BaseURL,
		APIKey:            cfg.Places.APIKey,
		RequestsPerMin:    cfg.Places.RateLimit.RequestsPerWindow,
		RateWindow:        cfg.Places.RateLimit.Window,
		SearchCacheTTL:    cfg.Places.SearchCacheTTL,
		DetailsCacheTTL:   cfg.Places.DetailsCacheTTL,
		MaxRadiusMiles:    cfg.Places.MaxRadiusMiles,
		DefaultLimit:      cfg.Places.DefaultLimit,
		RequestTimeout:    cfg.Places.RequestTimeout,
		EnrichmentWorkers: cfg.Places.EnrichmentWorkers,
		WarmupPoints:      warmupPoints,
	}, store, logger, metrics)

	// Warm caches for the configured locations
	if cfg.Cache.WarmupEnabled {
		logger.Info("warming caches...")
		warmer := cache.NewWarmer(logger, cache.DefaultWarmupConfig())
		warmer.RegisterProvider(weatherSvc)
		warmer.RegisterProvider(searcher)
		warmer.Warmup(ctx)
	}

	// Pre-fetch state for the configured fallback location, the same way
	// a client session would on first load.
	if cfg.Location.DefaultLat != 0 || cfg.Location.DefaultLon != 0 {
		source := session.NewStaticSource(geo.Point{Lat: cfg.Location.DefaultLat, Lon: cfg.Location.DefaultLon})

		weatherStore := session.NewStore(session.StoreConfig{
			Name:            "weather",
			LocationTimeout: cfg.Location.Timeout,
		}, source, func(ctx context.Context, pt geo.Point, _ struct{}) (*weather.Snapshot, error) {
			return weatherSvc.Current(ctx, pt)
		}, logger)

		venueStore := session.NewStore(session.StoreConfig{
			Name:            "venues",
			LocationTimeout: cfg.Location.Timeout,
		}, source, func(ctx context.Context, pt geo.Point, p venueParams) (*venues.Result, error) {
			return searcher.Search(ctx, venues.Query{
				Center:      pt,
				RadiusMiles: p.RadiusMiles,
				Category:    p.Category,
				SortBy:      p.SortBy,
			})
		}, logger)
		venueStore.SetParams(ctx, venueParams{RadiusMiles: 5})

		go weatherStore.Init(ctx)
		go venueStore.Init(ctx)
	}

	// Start HTTP server
	logger.Info("starting HTTP server...")
	srv := api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ClientRPS:   cfg.HTTP.ClientRPS,
		ClientBurst: cfg.HTTP.ClientBurst,
	}, weatherSvc, searcher, logger, metrics)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(ctx, "HTTP server error", err)
			cancel()
		}
	}()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received, gracefully stopping...")
	case <-ctx.Done():
		logger.Info("context cancelled, stopping...")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.LogError(ctx, "HTTP shutdown error", err)
	}
	logger.Info("application stopped")
}
