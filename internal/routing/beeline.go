package routing

import (
	"context"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Beeline is the always-available Provider: great-circle (haversine)
// distance between geographic points. Every other provider falls back
// to it on error.
type Beeline struct{}

func (Beeline) Name() string { return "BEELINE" }

func (Beeline) Distance(_ context.Context, origin, dest orb.Point) (float64, error) {
	return orbgeo.DistanceHaversine(origin, dest), nil
}

func (b Beeline) DistanceOneToMany(ctx context.Context, origin orb.Point, dests []orb.Point) ([]float64, error) {
	out := make([]float64, len(dests))
	for i, d := range dests {
		out[i], _ = b.Distance(ctx, origin, d)
	}
	return out, nil
}
