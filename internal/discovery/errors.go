// Package discovery defines the error taxonomy shared by the venue and
// weather orchestrators. Callers branch on these to render distinct
// outcomes: still loading, permission required, rate limited, transient
// failure, or genuinely no results.
package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a missing or invalid API key. Never
	// retried; surfaced immediately.
	ErrConfiguration = errors.New("discovery: not configured")

	// ErrValidation indicates malformed coordinates or an out-of-range
	// radius, rejected before any network call.
	ErrValidation = errors.New("discovery: invalid input")

	// ErrRateLimited indicates the caller exceeded its per-location quota.
	// No upstream call was made; retry after the window resets.
	ErrRateLimited = errors.New("discovery: rate limited")

	// ErrPermissionDenied indicates location permission was refused
	// upstream of any network call.
	ErrPermissionDenied = errors.New("discovery: location permission denied")

	// ErrLocationUnavailable indicates no location fix could be acquired
	// in time.
	ErrLocationUnavailable = errors.New("discovery: location unavailable")

	// ErrUnavailable indicates the upstream service failed after all
	// retries were exhausted.
	ErrUnavailable = errors.New("discovery: upstream unavailable")
)

// TransientError wraps a retryable upstream failure (timeout, 5xx, 429).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Retryable marks the error as transient for retry helpers.
func (e *TransientError) Retryable() bool { return true }

// PermanentError wraps a non-retryable upstream failure (4xx other than 429).
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Retryable marks the error as permanent for retry helpers.
func (e *PermanentError) Retryable() bool { return false }
