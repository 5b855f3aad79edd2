package odcalib

import (
	"context"
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

func zoneWithBuilding(name string, id int64, homeAttr, workAttr float64) (*model.ODZone, model.LocationOption) {
	z := model.NewODZone(name)
	z.OriginActivity = model.Home
	z.DestActivity = model.Work
	z.InFocusArea = true
	b := model.NewBuilding(id, orb.Point{float64(id), 0}, orb.Point{float64(id), 0}, true)
	b.Attr[model.Home] = homeAttr
	b.Attr[model.Work] = workAttr
	return z, b
}

func TestCalibrateRejectsNonHomeWorkZones(t *testing.T) {
	z := model.NewODZone("z")
	z.OriginActivity = model.Shopping
	z.DestActivity = model.Other
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)

	_, err := Calibrate(context.Background(), []*model.ODZone{z}, engine, nil)
	if err == nil {
		t.Fatal("expected an error for a non-HOME->WORK zone activity pair")
	}
}

func TestCalibrateProducesOriginFactors(t *testing.T) {
	zA, bA := zoneWithBuilding("A", 1, 10, 5)
	zB, bB := zoneWithBuilding("B", 2, 1, 5)
	zA.Outflows["B"] = 50
	zB.Outflows["A"] = 50

	locsByZone := map[string][]model.LocationOption{"A": {bA}, "B": {bB}}
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)

	table, err := Calibrate(context.Background(), []*model.ODZone{zA, zB}, engine, locsByZone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Zone A has much higher HOME attraction than its OD-implied share
	// warrants (50/100 vs ~10/11), so its origin factor should pull it down.
	factorA := table.Lookup(model.Home, "", "A")
	factorB := table.Lookup(model.Home, "", "B")
	if factorA >= 1.0 {
		t.Errorf("expected zone A's origin factor to be damped below 1, got %v", factorA)
	}
	if factorB <= 1.0 {
		t.Errorf("expected zone B's origin factor to be boosted above 1, got %v", factorB)
	}
}

func TestCalibrateSkipsZonesOutsideFocusArea(t *testing.T) {
	zA, bA := zoneWithBuilding("A", 1, 10, 5)
	zB, bB := zoneWithBuilding("B", 2, 10, 5)
	zB.InFocusArea = false
	zA.Outflows["B"] = 20

	locsByZone := map[string][]model.LocationOption{"A": {bA}, "B": {bB}}
	engine := destchoice.NewEngine(fixedDistances{}, destchoice.NewDistanceDistributions(nil), nil)

	table, err := Calibrate(context.Background(), []*model.ODZone{zA, zB}, engine, locsByZone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Lookup(model.Work, "A", "B"); got != 1.0 {
		t.Errorf("expected no transition factor for an out-of-focus destination zone, got %v", got)
	}
}
