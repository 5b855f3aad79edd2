package destchoice

import "testing"

func TestKFactorTableDefaultsToOne(t *testing.T) {
	k := NewKFactorTable()
	if got := k.Lookup(0, "a", "b"); got != 1.0 {
		t.Errorf("expected default factor 1.0, got %v", got)
	}
}

func TestKFactorTableNilSafe(t *testing.T) {
	var k *KFactorTable
	if got := k.Lookup(0, "a", "b"); got != 1.0 {
		t.Errorf("nil table should default to 1.0, got %v", got)
	}
}

func TestKFactorTableExactThenOriginWildcard(t *testing.T) {
	k := NewKFactorTable()
	k.Set(0, "", "b", 2.0)
	k.Set(0, "a", "b", 3.0)

	if got := k.Lookup(0, "a", "b"); got != 3.0 {
		t.Errorf("expected exact zone-pair factor 3.0, got %v", got)
	}
	if got := k.Lookup(0, "x", "b"); got != 2.0 {
		t.Errorf("expected origin-wildcard fallback 2.0, got %v", got)
	}
	if got := k.Lookup(0, "x", "y"); got != 1.0 {
		t.Errorf("expected default 1.0 for an unrelated pair, got %v", got)
	}
}

func TestDistanceDensityFallsBackForUnknownRegion(t *testing.T) {
	d := NewDistanceDistributions(nil)
	v := d.density(0, 0, 500)
	if v <= 0 {
		t.Errorf("expected a positive density from the generic fallback curve, got %v", v)
	}
}

func TestDistanceDensityClampsZeroDistance(t *testing.T) {
	d := NewDistanceDistributions(nil)
	v := d.density(0, 0, 0)
	if v <= 0 {
		t.Errorf("expected a positive density at the clamped minimum distance, got %v", v)
	}
}
