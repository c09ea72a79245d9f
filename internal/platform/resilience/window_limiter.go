package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrRateLimitExceeded is returned when a fixed window is exhausted
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// fixedWindow tracks admitted requests for one key.
type fixedWindow struct {
	count     int
	resetTime time.Time
}

// WindowLimiter implements fixed-window rate limiting keyed by string.
// Each limiter carries exactly one limit/window configuration; call
// sites that need different quotas construct their own limiter instead
// of passing per-call parameters, so a key can never see two competing
// configurations.
type WindowLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*fixedWindow
}

// NewWindowLimiter creates a limiter admitting at most limit requests per
// key within each window.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &WindowLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*fixedWindow),
	}
}

// Allow reports whether a request for key is admitted. A fresh or expired
// window restarts at count=1 and admits. A full window rejects without
// mutating state; requests are never queued.
func (wl *WindowLimiter) Allow(key string) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := time.Now()
	w, exists := wl.windows[key]

	if !exists || now.After(w.resetTime) {
		wl.windows[key] = &fixedWindow{
			count:     1,
			resetTime: now.Add(wl.window),
		}
		return true
	}

	if w.count >= wl.limit {
		return false
	}

	w.count++
	return true
}

// Remaining reports how many requests the active window for key still
// admits, or the full limit if no window is active.
func (wl *WindowLimiter) Remaining(key string) int {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	w, exists := wl.windows[key]
	if !exists || time.Now().After(w.resetTime) {
		return wl.limit
	}

	remaining := wl.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetAt returns when the active window for key resets. With no active
// window it returns the current time.
func (wl *WindowLimiter) ResetAt(key string) time.Time {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	if w, exists := wl.windows[key]; exists {
		return w.resetTime
	}
	return time.Now()
}

// Limit returns the per-window limit.
func (wl *WindowLimiter) Limit() int {
	return wl.limit
}

// Window returns the window duration.
func (wl *WindowLimiter) Window() time.Duration {
	return wl.window
}

// Clear drops all tracked windows.
func (wl *WindowLimiter) Clear() {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	wl.windows = make(map[string]*fixedWindow)
}
