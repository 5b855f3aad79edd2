// Package destchoice is the destination-choice engine (C6): a gravity
// model combining per-activity attraction, a log-normal distance
// deterrence indexed by region type, and optional OD k-factors, sampled
// in the two-stage aggregate-then-refine scheme spec §4.6 describes.
package destchoice

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

// minPositiveDistance is the clamp applied at dist=0 so the log-normal
// density never evaluates log(0), per spec §7.
const minPositiveDistance = 1e-6

// DistanceParams is one (shape, scale) pair for a log-normal distance
// deterrence curve. Mu/Sigma follow gonum's LogNormal parameterization
// (the underlying normal's mean and standard deviation of log(X)).
type DistanceParams struct {
	Mu    float64
	Sigma float64
}

// DistanceDistributions is the embedded table of deterrence curves,
// indexed by [activity][regionType].
type DistanceDistributions struct {
	byActivityRegion map[model.ActivityType]map[model.RegionType]DistanceParams
}

// NewDistanceDistributions builds a table from a flat list of entries.
func NewDistanceDistributions(entries []DistanceTableEntry) *DistanceDistributions {
	d := &DistanceDistributions{byActivityRegion: make(map[model.ActivityType]map[model.RegionType]DistanceParams)}
	for _, e := range entries {
		m, ok := d.byActivityRegion[e.Activity]
		if !ok {
			m = make(map[model.RegionType]DistanceParams)
			d.byActivityRegion[e.Activity] = m
		}
		m[e.Region] = e.Params
	}
	return d
}

// DistanceTableEntry is one row of the embedded/loaded deterrence table.
type DistanceTableEntry struct {
	Activity model.ActivityType
	Region   model.RegionType
	Params   DistanceParams
}

// density evaluates f_t(dist, region): the log-normal density at the
// given distance for this activity/region combination. Missing entries
// fall back to a generic curve (Mu=8, Sigma=1, roughly centered on a few
// kilometers) rather than erroring, since an unrecognized region type is
// a data-coverage gap, not a configuration failure.
func (d *DistanceDistributions) density(t model.ActivityType, r model.RegionType, dist float64) float64 {
	if dist <= 0 {
		dist = minPositiveDistance
	}
	params := DistanceParams{Mu: 8, Sigma: 1}
	if byRegion, ok := d.byActivityRegion[t]; ok {
		if p, ok := byRegion[r]; ok {
			params = p
		}
	}
	ln := distuv.LogNormal{Mu: params.Mu, Sigma: params.Sigma}
	v := ln.Prob(dist)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
