package destchoice

import (
	"context"
	"math/rand/v2"

	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/rng"
	"github.com/L-Strobel/omod-sub001/internal/routing"
)

// DistanceProvider is the slice of routing.Cache the engine needs:
// routed (or Euclidean-fallback) distances from one origin to many
// destinations. Accepting an interface rather than *routing.Cache keeps
// the engine testable without a real cache.
type DistanceProvider interface {
	DistancesFromTo(ctx context.Context, origin model.LocationOption, destinations []model.LocationOption) []float64
}

var _ DistanceProvider = (*routing.Cache)(nil)

// Engine is the destination-choice engine (C6).
type Engine struct {
	distances DistanceProvider
	deterrence *DistanceDistributions
	kFactors   *KFactorTable
}

func NewEngine(distances DistanceProvider, deterrence *DistanceDistributions, kFactors *KFactorTable) *Engine {
	if kFactors == nil {
		kFactors = NewKFactorTable()
	}
	return &Engine{distances: distances, deterrence: deterrence, kFactors: kFactors}
}

// regionOf extracts a location's settlement-structure region type;
// DummyLocations carry none and default to RegionRural (sparsest
// deterrence curve, since dummy zones stand in for far-flung OD zones).
func regionOf(loc model.LocationOption) model.RegionType {
	switch v := loc.(type) {
	case *model.Building:
		if v.Region() != 0 {
			return v.Region()
		}
	case *model.Cell:
		if v.Region() != 0 {
			return v.Region()
		}
	}
	return model.RegionRural
}

// KFactor exposes the calibrated correction for an (origin zone,
// destination zone) pair. Callers that weight candidates without a
// concrete origin (anchor placement, C9 step 4) pass an empty origin
// zone, which resolves through the origin-calibration entries.
func (e *Engine) KFactor(t model.ActivityType, originZone, destZone string) float64 {
	return e.kFactors.Lookup(t, originZone, destZone)
}

// Weights computes, for each destination, the gravity-model weight
// w(d) = kFactor(t, origin.zone, d.zone) * A_t(d) * f_t(dist(origin,d), region(origin))
// per spec §4.6.
func (e *Engine) Weights(ctx context.Context, origin model.LocationOption, destinations []model.LocationOption, t model.ActivityType) []float64 {
	dists := e.distances.DistancesFromTo(ctx, origin, destinations)
	region := regionOf(origin)
	originZone := zoneName(origin.Zone())

	out := make([]float64, len(destinations))
	for i, d := range destinations {
		dist := dists[i]
		if origin == d {
			dist = d.AvgDistanceToSelf()
		}
		k := e.kFactors.Lookup(t, originZone, zoneName(d.Zone()))
		a := d.Attraction(t)
		f := e.deterrence.density(t, region, dist)
		out[i] = k * a * f
	}
	return out
}

// ChooseCell performs stage 1 of the aggregate-then-refine sampling:
// sample a Cell with probability proportional to Weights(origin, cells, t).
// On a degenerate (all-zero) weight vector it falls back to a uniform
// draw over the cells, per spec §7.
func (e *Engine) ChooseCell(ctx context.Context, origin model.LocationOption, cells []*model.Cell, t model.ActivityType, r *rand.Rand) *model.Cell {
	locs := make([]model.LocationOption, len(cells))
	for i, c := range cells {
		locs[i] = c
	}
	weights := e.Weights(ctx, origin, locs, t)
	cum, err := rng.BuildCumulative(weights)
	if err != nil {
		cum = rng.UniformCumulative(len(cells))
	}
	return cells[rng.Sample(cum, r)]
}

// ChooseBuilding performs stage 2: sample a Building within a chosen
// cell with probability proportional to Weights(origin, cell.buildings, t).
func (e *Engine) ChooseBuilding(ctx context.Context, origin model.LocationOption, cell *model.Cell, t model.ActivityType, r *rand.Rand) *model.Building {
	locs := make([]model.LocationOption, len(cell.Buildings))
	for i, b := range cell.Buildings {
		locs[i] = b
	}
	weights := e.Weights(ctx, origin, locs, t)
	cum, err := rng.BuildCumulative(weights)
	if err != nil {
		cum = rng.UniformCumulative(len(cell.Buildings))
	}
	return cell.Buildings[rng.Sample(cum, r)]
}

// ChooseDestination runs the full two-stage selection and applies the
// flexible-location invariant (§4.6): for SHOPPING/OTHER originating at
// a DummyLocation whose transfer activities exclude t, the destination
// is forced to equal the origin (a self-loop), since such a zone's
// travelers never actually leave it for that purpose in the model.
func (e *Engine) ChooseDestination(ctx context.Context, origin model.LocationOption, cells []*model.Cell, t model.ActivityType, r *rand.Rand) model.LocationOption {
	if dl, ok := origin.(*model.DummyLocation); ok {
		if (t == model.Shopping || t == model.Other) && !dl.TransferActivities[t] {
			return origin
		}
	}
	if len(cells) == 0 {
		return origin
	}
	cell := e.ChooseCell(ctx, origin, cells, t, r)
	if len(cell.Buildings) == 0 {
		return cell
	}
	return e.ChooseBuilding(ctx, origin, cell, t, r)
}

// ChooseZone samples one LocationOption from a flat candidate list (not
// grouped into cells) with probability proportional to Weights, falling
// back to a uniform draw on an all-zero weight vector.
func (e *Engine) ChooseZone(ctx context.Context, origin model.LocationOption, candidates []model.LocationOption, t model.ActivityType, r *rand.Rand) model.LocationOption {
	weights := e.Weights(ctx, origin, candidates, t)
	cum, err := rng.BuildCumulative(weights)
	if err != nil {
		cum = rng.UniformCumulative(len(candidates))
	}
	return candidates[rng.Sample(cum, r)]
}
