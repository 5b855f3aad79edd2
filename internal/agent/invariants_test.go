package agent

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"

	"github.com/L-Strobel/omod-sub001/internal/destchoice"
	"github.com/L-Strobel/omod-sub001/internal/model"
)

type fixedDistances struct{}

func (fixedDistances) DistancesFromTo(_ context.Context, _ model.LocationOption, dests []model.LocationOption) []float64 {
	out := make([]float64, len(dests))
	for i := range out {
		out[i] = 1000
	}
	return out
}

func testCandidates() Candidates {
	b := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{0, 0}, true)
	b.Attr[model.Home] = 1
	b.Attr[model.Work] = 1
	b.Attr[model.School] = 1
	cell := model.NewCell(1)
	cell.Buildings = []*model.Building{b}
	cell.Recompute(func(a, c orb.Point) float64 { return 1 })
	return Candidates{Zones: []Zone{{Cells: []*model.Cell{cell}}}}
}

func testStrata() []model.PopulationStratum {
	return []model.PopulationStratum{
		{
			HomogeneousGroup: "worker",
			MobilityGroup:    "mobile",
			Share:            1.0,
			AgeBins:          []model.AgeBin{{Upper: 65, Share: 1.0}},
			CarOwnershipProb: 0.5,
			SexShare:         map[string]float64{"male": 0.5, "female": 0.5},
		},
	}
}

func TestBuildAssignsAllThreeAnchors(t *testing.T) {
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)
	f := NewFactory(testStrata(), engine, testCandidates())
	f.ResetDeterministic(1)

	r := rand.New(rand.NewPCG(1, 2))
	a := f.Build(context.Background(), 0, false, false, r)

	if a.Home == nil || a.Work == nil || a.School == nil {
		t.Fatalf("expected all three anchors assigned, got home=%v work=%v school=%v", a.Home, a.Work, a.School)
	}
	if a.Features.HomogeneousGroup != "worker" {
		t.Errorf("expected homogeneous group 'worker', got %q", a.Features.HomogeneousGroup)
	}
	if a.Features.Age == nil || *a.Features.Age > 65 {
		t.Errorf("expected an age within the stratum's bin, got %v", a.Features.Age)
	}
}

func TestDeterministicSamplingRespectsExpectedCounts(t *testing.T) {
	strata := []model.PopulationStratum{
		{
			HomogeneousGroup: "worker", MobilityGroup: "mobile", Share: 0.75,
			AgeBins: []model.AgeBin{{Upper: 65, Share: 1.0}}, CarOwnershipProb: 0.5,
			SexShare: map[string]float64{"male": 1.0},
		},
		{
			HomogeneousGroup: "pupil", MobilityGroup: "mobile", Share: 0.25,
			AgeBins: []model.AgeBin{{Upper: 18, Share: 1.0}}, CarOwnershipProb: 0,
			SexShare: map[string]float64{"male": 1.0},
		},
	}
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)
	f := NewFactory(strata, engine, testCandidates())
	f.ResetDeterministic(100)

	r := rand.New(rand.NewPCG(1, 2))
	counts := map[string]int{}
	for i := 0; i < 100; i++ {
		a := f.Build(context.Background(), int64(i), false, false, r)
		counts[a.Features.HomogeneousGroup]++
	}
	if counts["worker"] != 75 {
		t.Errorf("expected exactly 75 workers out of 100, got %d", counts["worker"])
	}
	if counts["pupil"] != 25 {
		t.Errorf("expected exactly 25 pupils out of 100, got %d", counts["pupil"])
	}
}

func TestRandomSamplingIsReproducibleForSameSeed(t *testing.T) {
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)

	build := func() string {
		f := NewFactory(testStrata(), engine, testCandidates())
		r := rand.New(rand.NewPCG(7, 3))
		a := f.Build(context.Background(), 0, true, false, r)
		return a.Features.HomogeneousGroup + a.Features.Sex
	}
	if build() != build() {
		t.Fatal("expected identical draws for the same PCG seed")
	}
}

func TestPlaceAnchorAppliesOriginKFactors(t *testing.T) {
	zoneA := model.NewODZone("A")
	zoneB := model.NewODZone("B")

	mkCell := func(id int64, z *model.ODZone) *model.Cell {
		b := model.NewBuilding(id, orb.Point{float64(id), 0}, orb.Point{float64(id), 0}, true)
		b.Attr[model.Home] = 1
		b.SetZone(z)
		c := model.NewCell(id)
		c.Buildings = []*model.Building{b}
		c.Recompute(func(a, p orb.Point) float64 { return 1 })
		c.SetZone(z)
		return c
	}

	// Equal attraction, but calibration boosts zone B's HOME share hard.
	kf := destchoice.NewKFactorTable()
	kf.Set(model.Home, "", "A", 0.01)
	kf.Set(model.Home, "", "B", 100)
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), kf)

	candidates := Candidates{Zones: []Zone{{Cells: []*model.Cell{mkCell(1, zoneA), mkCell(2, zoneB)}}}}
	f := NewFactory(testStrata(), engine, candidates)

	r := rand.New(rand.NewPCG(3, 4))
	inB := 0
	for i := 0; i < 200; i++ {
		home := f.placeAnchor(model.Home, r, false)
		if home.Zone() == zoneB {
			inB++
		}
	}
	if inB < 180 {
		t.Errorf("expected the boosted zone to dominate home placement, got %d/200", inB)
	}
}

func TestRestrictHomeToFocusAvoidsBufferOnlyBuildings(t *testing.T) {
	focusB := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{0, 0}, true)
	focusB.Attr[model.Home] = 1
	focusB.Attr[model.Work] = 1
	focusB.Attr[model.School] = 1
	focusCell := model.NewCell(1)
	focusCell.Buildings = []*model.Building{focusB}
	focusCell.Recompute(func(a, c orb.Point) float64 { return 1 })

	bufferB := model.NewBuilding(2, orb.Point{0, 0}, orb.Point{0, 0}, false)
	bufferB.Attr[model.Home] = 1000 // overwhelmingly more attractive, but out of focus
	bufferB.Attr[model.Work] = 1000
	bufferB.Attr[model.School] = 1000
	bufferCell := model.NewCell(2)
	bufferCell.Buildings = []*model.Building{bufferB}
	bufferCell.Recompute(func(a, c orb.Point) float64 { return 1 })

	candidates := Candidates{Zones: []Zone{{Cells: []*model.Cell{focusCell, bufferCell}}}}
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)
	f := NewFactory(testStrata(), engine, candidates)
	f.ResetDeterministic(1)

	r := rand.New(rand.NewPCG(1, 2))
	a := f.Build(context.Background(), 0, false, true, r)

	if !a.Home.InFocusArea() {
		t.Fatalf("expected home restricted to the focus area, got a buffer-area location")
	}
}
