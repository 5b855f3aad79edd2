// Package odcalib is the OD calibrator (C7): it builds k-factor tables
// by comparing an observed origin-destination matrix against the
// destination-choice engine's own model-implied shares, per spec §4.7.
// Only HOME->WORK transitions are supported; any other activity pair in
// the input is rejected.
package odcalib

import (
	"context"
	"fmt"

	"github.com/L-Strobel/omod-sub001/internal/destchoice"
	"github.com/L-Strobel/omod-sub001/internal/model"
)

// Calibrate runs both calibration passes described in §4.7 and returns
// a populated destchoice.KFactorTable.
//
//  1. Origin calibration: for each zone z, kFactor[HOME, (nil, z)] =
//     odShare(z) / modelShare(z), where odShare is the OD-implied share
//     of HOME activity ending in z and modelShare is the destination-
//     choice engine's own HOME-weight share for locations in z.
//  2. Transition calibration: for each zone pair (o,d) both overlapping
//     the focus area, kFactor[WORK, (o,d)] = odShare(o,d) / modelShare(o,d),
//     where the model weight of (o,d) is homeWeight(s)*workWeight(s,t)
//     summed over locations s in o and t in d, and both shares are taken
//     over o's in-focus destinations.
func Calibrate(ctx context.Context, zones []*model.ODZone, engine *destchoice.Engine, focusLocationsByZone map[string][]model.LocationOption) (*destchoice.KFactorTable, error) {
	table := destchoice.NewKFactorTable()

	zoneByName := make(map[string]*model.ODZone, len(zones))
	for _, z := range zones {
		zoneByName[z.Name] = z
		if z.OriginActivity != model.Home || z.DestActivity != model.Work {
			return nil, fmt.Errorf("odcalib: unsupported OD activity pair %s->%s for zone %q (only HOME->WORK is supported)",
				z.OriginActivity, z.DestActivity, z.Name)
		}
	}

	if err := calibrateOrigins(ctx, zones, engine, focusLocationsByZone, table); err != nil {
		return nil, err
	}
	calibrateTransitions(ctx, zones, engine, focusLocationsByZone, table)

	return table, nil
}

// calibrateOrigins implements §4.7 step 1.
func calibrateOrigins(ctx context.Context, zones []*model.ODZone, engine *destchoice.Engine, locsByZone map[string][]model.LocationOption, table *destchoice.KFactorTable) error {
	var totalFlow float64
	for _, z := range zones {
		for _, f := range z.Outflows {
			totalFlow += f
		}
	}
	if totalFlow <= 0 {
		totalFlow = 1
	}

	var totalModel float64
	modelByZone := make(map[string]float64, len(zones))
	for _, z := range zones {
		locs := locsByZone[z.Name]
		m := homeWeightSum(locs)
		modelByZone[z.Name] = m
		totalModel += m
	}
	if totalModel <= 0 {
		totalModel = 1
	}

	for _, z := range zones {
		odShare := zoneOutflowSum(z) / totalFlow
		modelShare := modelByZone[z.Name] / totalModel
		factor := 1.0
		if modelShare > 0 {
			factor = odShare / modelShare
		}
		table.Set(model.Home, "", z.Name, factor)
	}
	return nil
}

func zoneOutflowSum(z *model.ODZone) float64 {
	var sum float64
	for _, f := range z.Outflows {
		sum += f
	}
	return sum
}

// homeWeightSum approximates modelShare's numerator: the sum of each
// location's HOME attraction weight, used as a stand-in for
// `weights(-, loc, HOME)` when no single concrete origin is available
// (origin calibration compares aggregate shares, not a single traveler's
// choice set).
func homeWeightSum(locs []model.LocationOption) float64 {
	var sum float64
	for _, l := range locs {
		sum += l.Attraction(model.Home)
	}
	return sum
}

// calibrateTransitions implements §4.7 step 2.
func calibrateTransitions(ctx context.Context, zones []*model.ODZone, engine *destchoice.Engine, locsByZone map[string][]model.LocationOption, table *destchoice.KFactorTable) {
	for _, o := range zones {
		if !o.InFocusArea {
			continue
		}
		originLocs := locsByZone[o.Name]
		modelWeights := make(map[string]float64, len(o.Outflows))
		var flowSum, modelSum float64
		for destName, odFlow := range o.Outflows {
			if d, ok := findZone(zones, destName); ok && d.InFocusArea {
				modelWeights[destName] = transitionModelWeight(ctx, originLocs, locsByZone[d.Name], engine)
				flowSum += odFlow
				modelSum += modelWeights[destName]
			}
		}
		for destName, odFlow := range o.Outflows {
			d, ok := findZone(zones, destName)
			if !ok || !d.InFocusArea {
				continue
			}

			modelWeight := modelWeights[destName]
			factor := 1.0
			if modelWeight > 0 && flowSum > 0 {
				factor = (odFlow / flowSum) / (modelWeight / modelSum)
			}
			table.Set(model.Work, o.Name, d.Name, factor)
		}
	}
}

func findZone(zones []*model.ODZone, name string) (*model.ODZone, bool) {
	for _, z := range zones {
		if z.Name == name {
			return z, true
		}
	}
	return nil, false
}

// transitionModelWeight sums homeWeight(s) * workWeight(s,t) over every
// (s in origin, t in destination) pair, using the engine's own WORK
// weights (without k-factors applied yet, since this IS the
// calibration pass computing them) as workWeight(s,t).
func transitionModelWeight(ctx context.Context, originLocs, destLocs []model.LocationOption, engine *destchoice.Engine) float64 {
	var total float64
	for _, s := range originLocs {
		homeW := s.Attraction(model.Home)
		if homeW <= 0 {
			continue
		}
		workWeights := engine.Weights(ctx, s, destLocs, model.Work)
		var workSum float64
		for _, w := range workWeights {
			workSum += w
		}
		total += homeW * workSum
	}
	return total
}
