// Package session holds the UI-facing fetch state for each data source:
// idle, loading, success, or error, plus the once-per-session init guard
// and the generation counter that discards superseded in-flight fetches.
package session

import "time"

// Phase is the lifecycle state of one fetch cycle.
type Phase int

const (
	// PhaseIdle means no fetch has been started this session.
	PhaseIdle Phase = iota
	// PhaseLoading means a fetch is in flight.
	PhaseLoading
	// PhaseSuccess means the last fetch completed and Value is current.
	PhaseSuccess
	// PhaseError means the last fetch failed and Err describes why.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is one observable view of a store's state. During a reload the
// previous value is retained so screens can keep rendering stale data
// behind a spinner.
type Snapshot[T any] struct {
	Phase     Phase
	Value     T
	Err       error
	UpdatedAt time.Time
}
