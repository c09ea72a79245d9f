package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spotsync/discovery/internal/discovery"
	"github.com/spotsync/discovery/internal/geo"
	"github.com/spotsync/discovery/internal/platform/observability"
	"github.com/spotsync/discovery/internal/platform/resilience"
)

// FetchFunc produces one value for the acquired location and the current
// parameters.
type FetchFunc[P comparable, T any] func(ctx context.Context, pt geo.Point, params P) (T, error)

// StoreConfig holds store configuration.
type StoreConfig struct {
	// Name labels the store in logs.
	Name string

	// LocationTimeout bounds location acquisition.
	LocationTimeout time.Duration
}

// Store drives one data source through idle, loading, and terminal
// states. A fetch starts at most once per session on its own; explicit
// refreshes and parameter changes always start a new cycle. Every cycle
// carries a generation number, and a cycle that finishes after a newer
// one started is discarded so stale responses never overwrite fresher
// state.
type Store[P comparable, T any] struct {
	name       string
	source     Source
	fetch      FetchFunc[P, T]
	locTimeout time.Duration
	logger     *observability.Logger

	mu          sync.Mutex
	generation  uint64
	initialized bool
	params      P
	snap        Snapshot[T]
}

// NewStore creates a store. The zero value of P is the initial parameter
// set.
func NewStore[P comparable, T any](cfg StoreConfig, source Source, fetch FetchFunc[P, T], logger *observability.Logger) *Store[P, T] {
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = 10 * time.Second
	}
	return &Store[P, T]{
		name:       cfg.Name,
		source:     source,
		fetch:      fetch,
		locTimeout: cfg.LocationTimeout,
		logger:     logger,
	}
}

// Init starts the session's first fetch cycle. Subsequent calls within
// the same session are no-ops, so dependent screens re-rendering cannot
// trigger redundant fetch storms.
func (s *Store[P, T]) Init(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	s.Refresh(ctx)
}

// Refresh starts a new fetch cycle unconditionally, superseding any
// cycle still in flight.
func (s *Store[P, T]) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	params := s.params
	s.snap.Phase = PhaseLoading
	s.snap.Err = nil
	s.mu.Unlock()

	s.run(ctx, gen, params)
}

// SetParams updates the fetch parameters, starting a new cycle when they
// actually changed. Before the session's first Init the parameters are
// stored without fetching.
func (s *Store[P, T]) SetParams(ctx context.Context, params P) {
	s.mu.Lock()
	if s.params == params {
		s.mu.Unlock()
		return
	}
	s.params = params
	initialized := s.initialized
	s.mu.Unlock()

	if initialized {
		s.Refresh(ctx)
	}
}

// Params returns the current fetch parameters.
func (s *Store[P, T]) Params() P {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// State returns the current snapshot.
func (s *Store[P, T]) State() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// EndSession clears the init guard and resets the store to idle. Any
// cycle still in flight is orphaned by the generation bump.
func (s *Store[P, T]) EndSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.initialized = false
	s.snap = Snapshot[T]{}
}

// run executes one fetch cycle for the given generation.
func (s *Store[P, T]) run(ctx context.Context, gen uint64, params P) {
	pt, err := resilience.Bounded(ctx, s.locTimeout, s.source.Current)
	if err != nil {
		if errors.Is(err, resilience.ErrDeadline) {
			err = fmt.Errorf("%w: no fix within %v", discovery.ErrLocationUnavailable, s.locTimeout)
		}
		s.commitErr(ctx, gen, err)
		return
	}

	value, err := s.fetch(ctx, pt, params)
	if err != nil {
		s.commitErr(ctx, gen, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.LogDebug(ctx, "Discarding superseded fetch result", "store", s.name, "generation", gen)
		return
	}
	s.snap = Snapshot[T]{Phase: PhaseSuccess, Value: value, UpdatedAt: time.Now()}
}

// commitErr records a failed cycle unless it has been superseded.
func (s *Store[P, T]) commitErr(ctx context.Context, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.LogDebug(ctx, "Discarding superseded fetch error", "store", s.name, "generation", gen)
		return
	}
	s.snap.Phase = PhaseError
	s.snap.Err = err
	s.snap.UpdatedAt = time.Now()
}
