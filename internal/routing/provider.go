// Package routing is the distance calculation & caching layer (C4): a
// two-tier bounded associative store from (origin, destination) to
// routed distance, backed by a pluggable Provider (Beeline or a thin
// GraphHopper HTTP client), plus a persisted on-disk matrix format.
package routing

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
)

// ErrPointUnreachable is returned by a Provider when the underlying
// router cannot find a route to/from a point at all (as opposed to a
// transient failure). Cache blacklists the offending endpoint on this
// error, per spec §4.4/§7.
var ErrPointUnreachable = errors.New("routing: point not reachable by router")

// Provider computes routed distances in meters between geographic
// (lon,lat) WGS84 points — the CRS external routers speak. The Cache
// is responsible for handing providers lat-lon coordinates; projected
// model-CRS math stays internal to its Euclidean fallback paths.
// Implementations may also be asked for one-to-many distances, which
// routers can usually answer far more cheaply than N individual
// one-to-one queries (a shortest-path tree from a single source).
type Provider interface {
	// Name identifies the provider ("BEELINE", "GRAPHHOPPER:<profile>").
	Name() string
	// Distance returns the routed distance (meters) from origin to dest.
	Distance(ctx context.Context, origin, dest orb.Point) (float64, error)
	// DistanceOneToMany returns routed distances (meters) from origin to
	// each of dests, in order.
	DistanceOneToMany(ctx context.Context, origin orb.Point, dests []orb.Point) ([]float64, error)
}
