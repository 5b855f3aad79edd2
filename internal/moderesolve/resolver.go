// Package moderesolve is the mode & trip resolver (C11): it assigns a
// transport mode to every trip in a diary and fills in distance/time
// from the configured router (or a constant-speed fallback), per spec
// §4.11.
package moderesolve

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/L-Strobel/omod-sub001/internal/geo"
	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/routing"
	"github.com/L-Strobel/omod-sub001/internal/transit"
)

// Policy selects a mode-choice strategy.
type Policy int

const (
	PolicyNone Policy = iota
	PolicyCarOnly
	PolicyGTFS
)

const (
	carFallbackKmh  = 75.0
	bikeFallbackKmh = 18.0
	footFallbackKmh = 5.0
	carParkingMin   = 5.0
)

// Resolver fills in every diary's trip list.
type Resolver struct {
	policy      Policy
	carCache    *routing.Cache
	bikeCache   *routing.Cache
	footCache   *routing.Cache
	transit     transit.Provider
	speedUp     map[model.Mode]float64
	returnPath  bool
	utility     UtilityFunc
}

// UtilityFunc computes the logit utility of choosing mode m for a trip
// of the given beeline distance (meters); higher is more attractive.
// Per spec §4.11, the exact parameterization is "not part of the core
// contract" — callers inject one.
type UtilityFunc func(m model.Mode, beelineDistM float64, carAccess bool) float64

// DefaultUtility is a simple distance-sensitive utility: cars and
// transit become relatively more attractive at longer distances, foot
// and bike less so, matching common discrete-choice mode models without
// claiming to be a calibrated one.
func DefaultUtility(m model.Mode, distM float64, carAccess bool) float64 {
	km := distM / 1000
	switch m {
	case model.CarDriver:
		if !carAccess {
			return -1e9
		}
		return 2.0 - 0.05*km
	case model.PublicTransit:
		return 0.5 + 0.02*km
	case model.Bicycle:
		return 1.5 - 0.3*km
	case model.Foot:
		return 1.0 - 0.8*km
	default:
		return -1e9
	}
}

// New builds a Resolver. Any of the caches may be nil (e.g. BEELINE
// routing_mode uses routing.Cache backed by routing.Beeline for every
// mode already, so car/bike/foot share one Euclidean fallback path).
func New(policy Policy, carCache, bikeCache, footCache *routing.Cache, transitProvider transit.Provider, speedUp map[model.Mode]float64, returnPath bool) *Resolver {
	if transitProvider == nil {
		transitProvider = transit.Beeline{}
	}
	return &Resolver{
		policy: policy, carCache: carCache, bikeCache: bikeCache, footCache: footCache,
		transit: transitProvider, speedUp: speedUp, returnPath: returnPath, utility: DefaultUtility,
	}
}

// Resolve fills diary.Trips from diary.Activities, per §4.11. startOfDay
// is the diary's day-0 wall-clock reference for transit schedule lookups.
func (res *Resolver) Resolve(ctx context.Context, diary *model.Diary, carAccess bool, startOfDay time.Time, r *rand.Rand) {
	diary.Trips = make([]model.Trip, 0, len(diary.Activities)-1)
	clock := startOfDay

	for i := 0; i+1 < len(diary.Activities); i++ {
		from := diary.Activities[i]
		to := diary.Activities[i+1]

		if from.StayTime != nil {
			clock = clock.Add(time.Duration(*from.StayTime * float64(time.Minute)))
		}
		trip := res.resolveTrip(ctx, from.Location, to.Location, carAccess, clock, r)
		diary.Trips = append(diary.Trips, trip)

		if trip.TimeMin != nil {
			clock = clock.Add(time.Duration(*trip.TimeMin * float64(time.Minute)))
		}
	}
}

func (res *Resolver) resolveTrip(ctx context.Context, origin, dest model.LocationOption, carAccess bool, departure time.Time, r *rand.Rand) model.Trip {
	switch res.policy {
	case PolicyNone:
		return model.Trip{Mode: model.UndefinedMode}
	case PolicyCarOnly:
		return res.carTrip(ctx, origin, dest)
	default: // PolicyGTFS
		return res.logitTrip(ctx, origin, dest, carAccess, departure, r)
	}
}

func (res *Resolver) carTrip(ctx context.Context, origin, dest model.LocationOption) model.Trip {
	distM := res.distanceFor(ctx, res.carCache, origin, dest)
	timeMin := distM/1000/carFallbackKmh*60 + carParkingMin
	timeMin = res.speedUpApplied(model.CarDriver, timeMin)
	distKm := distM / 1000
	tm := timeMin
	dk := distKm
	return model.Trip{Mode: model.CarDriver, DistanceKm: &dk, TimeMin: &tm}
}

func (res *Resolver) logitTrip(ctx context.Context, origin, dest model.LocationOption, carAccess bool, departure time.Time, r *rand.Rand) model.Trip {
	beeline := res.distanceFor(ctx, nil, origin, dest)

	modes := []model.Mode{model.CarDriver, model.PublicTransit, model.Bicycle, model.Foot}
	utils := make([]float64, len(modes))
	for i, m := range modes {
		utils[i] = res.utility(m, beeline, carAccess)
	}
	idx := sampleLogit(utils, r)
	mode := modes[idx]

	var distKm, timeMin float64
	var pathLats, pathLons []float64

	switch mode {
	case model.CarDriver:
		distM := res.distanceFor(ctx, res.carCache, origin, dest)
		distKm = distM / 1000
		timeMin = distKm/carFallbackKmh*60 + carParkingMin
	case model.Bicycle:
		distM := res.distanceFor(ctx, res.bikeCache, origin, dest)
		distKm = distM / 1000
		timeMin = distKm / bikeFallbackKmh * 60
	case model.Foot:
		distM := res.distanceFor(ctx, res.footCache, origin, dest)
		distKm = distM / 1000
		timeMin = distKm / footFallbackKmh * 60
	case model.PublicTransit:
		leg, err := res.transit.Query(ctx, origin.LatLon(), dest.LatLon(), departure, res.returnPath)
		if err != nil {
			distKm = beeline / 1000
			timeMin = distKm / 22.5 * 60
		} else {
			distKm = leg.DistanceKm
			timeMin = leg.TimeMin
			pathLats, pathLons = leg.PathLats, leg.PathLons
		}
	}

	timeMin = res.speedUpApplied(mode, timeMin)
	dk, tm := distKm, timeMin
	return model.Trip{Mode: mode, DistanceKm: &dk, TimeMin: &tm, PathLats: pathLats, PathLons: pathLons}
}

func (res *Resolver) speedUpApplied(m model.Mode, timeMin float64) float64 {
	if f, ok := res.speedUp[m]; ok && f > 0 {
		return timeMin * f
	}
	return timeMin
}

func (res *Resolver) distanceFor(ctx context.Context, cache *routing.Cache, origin, dest model.LocationOption) float64 {
	if cache == nil {
		return geo.EuclideanDistance(origin.Coord(), dest.Coord())
	}
	out := cache.DistancesFromTo(ctx, origin, []model.LocationOption{dest})
	return out[0]
}

// sampleLogit draws a mode index with multinomial-logit probability
// proportional to exp(utility).
func sampleLogit(utils []float64, r *rand.Rand) int {
	weights := make([]float64, len(utils))
	var maxU = utils[0]
	for _, u := range utils {
		if u > maxU {
			maxU = u
		}
	}
	var total float64
	for i, u := range utils {
		w := expClamped(u - maxU)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return 0
	}
	target := r.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if cum >= target {
			return i
		}
	}
	return len(weights) - 1
}

func expClamped(x float64) float64 {
	if x < -50 {
		return 0
	}
	return math.Exp(x)
}
