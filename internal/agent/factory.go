// Package agent is the agent factory (C9): it samples sociodemographic
// features and fixes each agent's home/work/school anchor locations, per
// spec §4.9.
package agent

import (
	"context"
	"math/rand/v2"

	"github.com/L-Strobel/omod-sub001/internal/destchoice"
	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/rng"
)

// Zone is one candidate home/work/school area: its cells (for two-stage
// sampling) plus any DummyLocation standing in for a zone with no
// buildings in the model area.
type Zone struct {
	Cells []*model.Cell
	Dummy *model.DummyLocation // nil if this zone has real buildings
}

// Candidates is everything the factory needs to place anchors.
type Candidates struct {
	Zones []Zone
}

func (c Candidates) allLocations() []model.LocationOption {
	var out []model.LocationOption
	for _, z := range c.Zones {
		if z.Dummy != nil {
			out = append(out, z.Dummy)
			continue
		}
		for _, cell := range z.Cells {
			out = append(out, cell)
		}
	}
	return out
}

// featureTuple is one (stratum, age, sex) combination with its joint
// probability, per spec §4.9 step 1.
type featureTuple struct {
	stratum   *model.PopulationStratum
	ageUpper  *int
	ageLower  int
	sex       string
	jointProb float64
}

func buildTuples(strata []model.PopulationStratum) []featureTuple {
	var tuples []featureTuple
	for si := range strata {
		st := &strata[si]
		lower := 0
		ageOptions := make([]struct {
			upper *int
			lower int
			share float64
		}, 0, len(st.AgeBins)+1)
		for _, bin := range st.AgeBins {
			b := bin
			ageOptions = append(ageOptions, struct {
				upper *int
				lower int
				share float64
			}{&b.Upper, lower, bin.Share})
			lower = bin.Upper
		}
		if st.AgeUndefinedShare > 0 {
			ageOptions = append(ageOptions, struct {
				upper *int
				lower int
				share float64
			}{nil, 0, st.AgeUndefinedShare})
		}
		for sex, sexShare := range st.SexShare {
			for _, ao := range ageOptions {
				tuples = append(tuples, featureTuple{
					stratum:   st,
					ageUpper:  ao.upper,
					ageLower:  ao.lower,
					sex:       sex,
					jointProb: st.Share * ao.share * sexShare,
				})
			}
		}
	}
	return tuples
}

// Factory builds agents from population strata and location candidates.
type Factory struct {
	strata     []model.PopulationStratum
	tuples     []featureTuple
	engine     *destchoice.Engine
	candidates Candidates

	// remaining tracks expected-count-minus-assigned for the deterministic
	// (without-replacement) sampling mode.
	remaining []float64
}

// NewFactory precomputes the feature-tuple space (§4.9 step 1).
func NewFactory(strata []model.PopulationStratum, engine *destchoice.Engine, candidates Candidates) *Factory {
	return &Factory{
		strata:     strata,
		tuples:     buildTuples(strata),
		engine:     engine,
		candidates: candidates,
	}
}

// ResetDeterministic initializes the remaining-count tracker used by
// deterministic sampling for a run of n agents.
func (f *Factory) ResetDeterministic(n int) {
	f.remaining = make([]float64, len(f.tuples))
	for i, t := range f.tuples {
		f.remaining[i] = t.jointProb * float64(n)
	}
}

// sampleTupleRandom draws a tuple by a single cumulative-distribution
// draw, per §4.9 step 2 ("random with-replacement").
func (f *Factory) sampleTupleRandom(r *rand.Rand) featureTuple {
	weights := make([]float64, len(f.tuples))
	for i, t := range f.tuples {
		weights[i] = t.jointProb
	}
	cum, err := rng.BuildCumulative(weights)
	if err != nil {
		cum = rng.UniformCumulative(len(f.tuples))
	}
	return f.tuples[rng.Sample(cum, r)]
}

// sampleTupleDeterministic repeatedly picks the tuple with the greatest
// remaining expected count and decrements it, guaranteeing exact
// marginal counts (§4.9 step 2, §9: explicitly NOT the source's known
// decrement-only-the-hit-bin bug — every draw here decrements the
// chosen tuple by exactly 1).
func (f *Factory) sampleTupleDeterministic() featureTuple {
	best := 0
	for i := 1; i < len(f.remaining); i++ {
		if f.remaining[i] > f.remaining[best] {
			best = i
		}
	}
	f.remaining[best]--
	return f.tuples[best]
}

// Build constructs one agent. randomFeatures selects §4.9 step 2's
// sampling mode; ResetDeterministic must have been called first when
// randomFeatures is false. When restrictHomeToFocus is true, the home
// anchor is drawn only from focus-area locations, per spec §4.9 step 6
// ("the first n_agents are guaranteed to live in the focus"); buffer-area
// extension agents (populate_buffer_area) pass false.
func (f *Factory) Build(ctx context.Context, id int64, randomFeatures bool, restrictHomeToFocus bool, r *rand.Rand) *model.MobiAgent {
	var tup featureTuple
	if randomFeatures {
		tup = f.sampleTupleRandom(r)
	} else {
		tup = f.sampleTupleDeterministic()
	}

	var age *int
	if tup.ageUpper != nil {
		span := *tup.ageUpper - tup.ageLower
		if span <= 0 {
			span = 1
		}
		a := tup.ageLower + r.IntN(span+1)
		age = &a
	}

	agentFeatures := model.SocioDemFeatureSet{
		HomogeneousGroup: tup.stratum.HomogeneousGroup,
		MobilityGroup:    tup.stratum.MobilityGroup,
		Age:              age,
		Sex:              tup.sex,
	}

	carAccess := r.Float64() < tup.stratum.CarOwnershipProb

	home := f.placeAnchor(model.Home, r, restrictHomeToFocus)
	work := f.placeAnchorFrom(ctx, home, model.Work, r)
	school := f.placeAnchorFrom(ctx, home, model.School, r)

	return &model.MobiAgent{
		ID:        id,
		Features:  agentFeatures,
		Home:      home,
		Work:      work,
		School:    school,
		CarAccess: carAccess,
	}
}

// placeAnchor samples a zone, then a cell/building within it, weighted
// by attraction for t times any origin-calibration k-factor for the
// candidate's OD zone (no distance term: there is no "origin" for a
// first anchor, per spec §4.9 step 4's "weights(-, zones, HOME)"). When
// focusOnly is set, any zone/cell/building with no focus-area member
// carries zero weight, so the draw can only land in the focus area.
func (f *Factory) placeAnchor(t model.ActivityType, r *rand.Rand, focusOnly bool) model.LocationOption {
	zones := f.candidates.Zones
	weights := make([]float64, len(zones))
	for i, z := range zones {
		if focusOnly && !zoneHasFocus(z) {
			continue
		}
		weights[i] = zoneAttraction(z, t)
		if z.Dummy != nil {
			weights[i] *= f.engine.KFactor(t, "", odZoneName(z.Dummy.Zone()))
		}
	}
	cum, err := rng.BuildCumulative(weights)
	if err != nil {
		cum = rng.UniformCumulative(len(zones))
	}
	zone := zones[rng.Sample(cum, r)]

	if zone.Dummy != nil {
		return zone.Dummy
	}
	cellWeights := make([]float64, len(zone.Cells))
	for i, c := range zone.Cells {
		if focusOnly && !cellHasFocus(c) {
			continue
		}
		cellWeights[i] = c.Attraction(t) * f.engine.KFactor(t, "", odZoneName(c.Zone()))
	}
	cum, err = rng.BuildCumulative(cellWeights)
	if err != nil {
		cum = rng.UniformCumulative(len(zone.Cells))
	}
	cell := zone.Cells[rng.Sample(cum, r)]
	if len(cell.Buildings) == 0 {
		return cell
	}
	bWeights := make([]float64, len(cell.Buildings))
	for i, b := range cell.Buildings {
		if focusOnly && !b.InFocusArea() {
			continue
		}
		bWeights[i] = b.Attraction(t) * f.engine.KFactor(t, "", odZoneName(b.Zone()))
	}
	cum, err = rng.BuildCumulative(bWeights)
	if err != nil {
		cum = rng.UniformCumulative(len(cell.Buildings))
	}
	return cell.Buildings[rng.Sample(cum, r)]
}

func odZoneName(z *model.ODZone) string {
	if z == nil {
		return ""
	}
	return z.Name
}

func zoneAttraction(z Zone, t model.ActivityType) float64 {
	if z.Dummy != nil {
		return z.Dummy.Attraction(t)
	}
	var sum float64
	for _, c := range z.Cells {
		sum += c.Attraction(t)
	}
	return sum
}

func zoneHasFocus(z Zone) bool {
	if z.Dummy != nil {
		return false
	}
	for _, c := range z.Cells {
		if cellHasFocus(c) {
			return true
		}
	}
	return false
}

func cellHasFocus(c *model.Cell) bool {
	for _, b := range c.Buildings {
		if b.InFocusArea() {
			return true
		}
	}
	return false
}

// placeAnchorFrom samples work/school through the destination-choice
// engine with the agent's home as origin, per §4.9 step 5: work and
// school are always assigned, regardless of whether the agent's
// homogeneous group actually uses them, so C10 never needs a special
// case for an anchor that "doesn't apply."
func (f *Factory) placeAnchorFrom(ctx context.Context, origin model.LocationOption, t model.ActivityType, r *rand.Rand) model.LocationOption {
	var allCells []*model.Cell
	for _, z := range f.candidates.Zones {
		allCells = append(allCells, z.Cells...)
	}
	if len(allCells) == 0 {
		return origin
	}
	return f.engine.ChooseDestination(ctx, origin, allCells, t, r)
}
