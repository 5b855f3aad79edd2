package destchoice

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

// fakeDistances reports distance as (index+1)*1000 meters, regardless
// of origin, so tests can reason about a known distance ladder without
// a real routing cache and no destination sits at zero distance.
type fakeDistances struct{}

func (fakeDistances) DistancesFromTo(_ context.Context, _ model.LocationOption, dests []model.LocationOption) []float64 {
	out := make([]float64, len(dests))
	for i := range dests {
		out[i] = float64(i+1) * 1000
	}
	return out
}

func buildingWithAttr(id int64, work float64) *model.Building {
	b := model.NewBuilding(id, orb.Point{float64(id), 0}, orb.Point{float64(id), 0}, true)
	b.Attr[model.Work] = work
	return b
}

func TestChooseZonePrefersHigherWeight(t *testing.T) {
	e := NewEngine(fakeDistances{}, NewDistanceDistributions(nil), nil)
	origin := buildingWithAttr(0, 1)
	strong := buildingWithAttr(1, 100)
	weak := buildingWithAttr(2, 0.001)

	counts := map[int64]int{}
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		got := e.ChooseZone(context.Background(), origin, []model.LocationOption{strong, weak}, model.Work, r)
		counts[got.(*model.Building).ID]++
	}
	if counts[strong.ID] <= counts[weak.ID] {
		t.Fatalf("expected the high-attraction building to dominate, got counts %v", counts)
	}
}

func TestChooseDestinationDummySelfLoopForShopping(t *testing.T) {
	e := NewEngine(fakeDistances{}, NewDistanceDistributions(nil), nil)
	zone := model.NewODZone("z1")
	dummy := model.NewDummyLocation(zone, orb.Point{0, 0}, orb.Point{0, 0})
	// TransferActivities excludes Shopping -> self-loop forced.
	dummy.TransferActivities[model.Work] = true

	r := rand.New(rand.NewPCG(1, 2))
	got := e.ChooseDestination(context.Background(), dummy, nil, model.Shopping, r)
	if got != model.LocationOption(dummy) {
		t.Fatalf("expected self-loop destination for excluded transfer activity, got %v", got)
	}
}

func TestChooseDestinationDummyAllowsTransferActivity(t *testing.T) {
	e := NewEngine(fakeDistances{}, NewDistanceDistributions(nil), nil)
	zone := model.NewODZone("z1")
	dummy := model.NewDummyLocation(zone, orb.Point{0, 0}, orb.Point{0, 0})
	dummy.TransferActivities[model.Shopping] = true

	cell := model.NewCell(1)
	cell.Buildings = []*model.Building{buildingWithAttr(10, 5)}
	cell.Recompute(func(a, b orb.Point) float64 { return 1 })

	r := rand.New(rand.NewPCG(1, 2))
	got := e.ChooseDestination(context.Background(), dummy, []*model.Cell{cell}, model.Shopping, r)
	if got == model.LocationOption(dummy) {
		t.Fatalf("expected a real destination when the transfer activity is allowed")
	}
}

func TestWeightsUsesAvgDistanceToSelfForSameLocation(t *testing.T) {
	e := NewEngine(fakeDistances{}, NewDistanceDistributions(nil), nil)
	b := buildingWithAttr(0, 1)
	weights := e.Weights(context.Background(), b, []model.LocationOption{b}, model.Work)
	if len(weights) != 1 {
		t.Fatalf("expected one weight, got %d", len(weights))
	}
	if weights[0] <= 0 {
		t.Errorf("expected a positive weight for a same-location destination, got %v", weights[0])
	}
}
