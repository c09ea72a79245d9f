package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/spotsync/discovery/internal/platform/observability"
)

// clientLimiter tracks one client's token bucket and its last use so
// idle entries can be dropped.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-client token bucket in front of the
// API handlers. This is independent of the per-location fixed windows
// inside the orchestrators: it protects the service itself, not the
// metered upstream APIs.
type RateLimitMiddleware struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter

	logger *observability.Logger
	stopCh chan struct{}
}

// NewRateLimitMiddleware creates a middleware admitting rps requests per
// second with the given burst per client IP.
func NewRateLimitMiddleware(rps float64, burst int, logger *observability.Logger) *RateLimitMiddleware {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}

	m := &RateLimitMiddleware{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	go m.cleanup()

	return m
}

// Wrap returns a handler that rate limits before delegating to next.
func (m *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		m.mu.Lock()
		cl, ok := m.clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(m.rps, m.burst)}
			m.clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		m.mu.Unlock()

		if !cl.limiter.Allow() {
			m.logger.LogDebug(r.Context(), "Client rate limited", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close stops the cleanup goroutine.
func (m *RateLimitMiddleware) Close() {
	close(m.stopCh)
}

// cleanup drops client entries not seen for a few minutes.
func (m *RateLimitMiddleware) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-3 * time.Minute)
			m.mu.Lock()
			for ip, cl := range m.clients {
				if cl.lastSeen.Before(cutoff) {
					delete(m.clients, ip)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}

// clientIP extracts the client address, ignoring the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
