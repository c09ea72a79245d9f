// Package api exposes the discovery service over HTTP: venue search,
// weather lookup, health probes, and the metrics endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spotsync/discovery/internal/discovery"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/observability"
	"github.com/spotsync/discovery/internal/venues"
	"github.com/spotsync/discovery/internal/weather"
)

// WeatherProvider is the weather lookup the API depends on.
type WeatherProvider interface {
	Current(ctx context.Context, pt geo.Point) (*weather.Snapshot, error)
}

// VenueSearcher is the venue search the API depends on.
type VenueSearcher interface {
	Search(ctx context.Context, q venues.Query) (*venues.Result, error)
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int
	ClientRPS   float64
	ClientBurst int
}

// Server routes API requests to the orchestrators.
type Server struct {
	weather   WeatherProvider
	venues    VenueSearcher
	metrics   *observability.Metrics
	logger    *observability.Logger
	rateLimit *RateLimitMiddleware
	httpSrv   *http.Server
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig, weatherSvc WeatherProvider, venueSearcher VenueSearcher, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		weather:   weatherSvc,
		venues:    venueSearcher,
		metrics:   metrics,
		logger:    logger,
		rateLimit: NewRateLimitMiddleware(cfg.ClientRPS, cfg.ClientBurst, logger),
	}

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/venues", s.rateLimit.Wrap(http.HandlerFunc(s.handleVenues)))
	mux.Handle("/v1/weather", s.rateLimit.Wrap(http.HandlerFunc(s.handleWeather)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

// ListenAndServe blocks serving requests until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "address", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimit.Close()
	return s.httpSrv.Shutdown(ctx)
}

// handleWeather serves GET /v1/weather?lat=..&lon=..
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pt, err := parsePoint(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	snap, err := s.weather.Current(r.Context(), pt)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleVenues serves GET /v1/venues?lat=..&lon=..&radius=..&category=..&min_rating=..&sort=..&limit=..
func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pt, err := parsePoint(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	q := venues.Query{
		Center:   pt,
		Category: r.URL.Query().Get("category"),
		SortBy:   venues.SortKey(r.URL.Query().Get("sort")),
	}

	q.RadiusMiles, err = parseFloatParam(r, "radius", 5)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	q.MinRating, err = parseFloatParam(r, "min_rating", 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		q.Limit = limit
	}

	res, err := s.venues.Search(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, discovery.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, discovery.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, discovery.ErrConfiguration),
		errors.Is(err, discovery.ErrUnavailable),
		errors.Is(err, discovery.ErrLocationUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, discovery.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.LogError(r.Context(), "Unhandled API error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parsePoint reads and validates the lat/lon query parameters.
func parsePoint(r *http.Request) (geo.Point, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("lat must be a number")
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("lon must be a number")
	}

	pt := geo.Point{Lat: lat, Lon: lon}
	if err := pt.Validate(); err != nil {
		return geo.Point{}, err
	}
	return pt, nil
}

// parseFloatParam reads an optional float query parameter.
func parseFloatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
