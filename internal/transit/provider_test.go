package transit

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func TestBeelineScalesWithDistance(t *testing.T) {
	near, err := Beeline{}.Query(context.Background(), orb.Point{0, 0}, orb.Point{0.001, 0}, time.Now(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	far, err := Beeline{}.Query(context.Background(), orb.Point{0, 0}, orb.Point{1, 0}, time.Now(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if far.TimeMin <= near.TimeMin {
		t.Errorf("expected travel time to grow with distance, got near=%v far=%v", near.TimeMin, far.TimeMin)
	}
	if far.DistanceKm <= near.DistanceKm {
		t.Errorf("expected distance to grow, got near=%v far=%v", near.DistanceKm, far.DistanceKm)
	}
}

func TestBeelineNeverReturnsPathWhenNotRequested(t *testing.T) {
	leg, err := Beeline{}.Query(context.Background(), orb.Point{0, 0}, orb.Point{1, 1}, time.Now(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leg.PathLats != nil || leg.PathLons != nil {
		t.Errorf("expected no path coordinates from Beeline, got %v/%v", leg.PathLats, leg.PathLons)
	}
}
