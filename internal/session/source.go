package session

import (
	"context"

	"github.com/spotsync/discovery/internal/geo"
)

// Source yields the location a fetch cycle should run against. Device
// implementations surface discovery.ErrPermissionDenied when the user
// refuses access; acquisition that overruns its deadline is reported by
// the store as discovery.ErrLocationUnavailable.
type Source interface {
	Current(ctx context.Context) (geo.Point, error)
}

// StaticSource always reports one fixed point. It backs server-side
// deployments and configured fallback locations.
type StaticSource struct {
	pt geo.Point
}

// NewStaticSource creates a source pinned to pt.
func NewStaticSource(pt geo.Point) *StaticSource {
	return &StaticSource{pt: pt}
}

// Current returns the configured point.
func (s *StaticSource) Current(ctx context.Context) (geo.Point, error) {
	return s.pt, nil
}
