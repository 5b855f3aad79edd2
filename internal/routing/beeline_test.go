package routing

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestBeelineDistanceIsHaversineMeters(t *testing.T) {
	// One degree of longitude at the equator is ~111.3 km.
	d, err := Beeline{}.Distance(context.Background(), orb.Point{0, 0}, orb.Point{1, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d-111320) > 500 {
		t.Errorf("expected ~111.3km for one equatorial degree, got %v", d)
	}
}

func TestBeelineDistanceOneToManyMatchesIndividualCalls(t *testing.T) {
	origin := orb.Point{13.4, 52.5}
	dests := []orb.Point{{13.41, 52.5}, {13.4, 52.51}, {13.4, 52.5}}

	batch, err := Beeline{}.DistanceOneToMany(context.Background(), origin, dests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, d := range dests {
		want, _ := Beeline{}.Distance(context.Background(), origin, d)
		if batch[i] != want {
			t.Errorf("dest %d: got %v, want %v", i, batch[i], want)
		}
	}
}

func TestBeelineNameIdentifiesProvider(t *testing.T) {
	if (Beeline{}).Name() != "BEELINE" {
		t.Errorf("expected provider name BEELINE, got %q", Beeline{}.Name())
	}
}
