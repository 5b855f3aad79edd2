package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func squareFocus() orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{13.30, 52.48}, {13.32, 52.48}, {13.32, 52.50}, {13.30, 52.50}, {13.30, 52.48},
		},
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	p := NewProjector(squareFocus())
	ll := orb.Point{13.31, 52.49}
	m := p.ToModelCRS(ll)
	back := p.ToLatLon(m)

	if math.Abs(back[0]-ll[0]) > 1e-6 || math.Abs(back[1]-ll[1]) > 1e-6 {
		t.Fatalf("round trip mismatch: got %v, want %v", back, ll)
	}
}

func TestProjectionCentralPointIsOrigin(t *testing.T) {
	focus := squareFocus()
	p := NewProjector(focus)
	c := Centroid(focus)
	m := p.ToModelCRS(c)
	if math.Abs(m[0]) > 1e-6 {
		t.Errorf("expected x ~ 0 at central longitude, got %v", m[0])
	}
}

func TestFastCoversIdempotent(t *testing.T) {
	focus := squareFocus()

	run := func() (inside, outside, unsure int) {
		FastCovers(focus, DefaultResolutions,
			func(orb.Bound) { inside++ },
			func(orb.Bound) { outside++ },
			func(orb.Bound) { unsure++ },
		)
		return
	}

	i1, o1, u1 := run()
	i2, o2, u2 := run()

	if i1 != i2 || o1 != o2 || u1 != u2 {
		t.Fatalf("fastCovers not idempotent: (%d,%d,%d) != (%d,%d,%d)", i1, o1, u1, i2, o2, u2)
	}
	if i1+o1+u1 == 0 {
		t.Fatalf("fastCovers produced no tiles")
	}
}

func TestFastCoversClassifiesFarPointOutside(t *testing.T) {
	focus := squareFocus()
	far := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0.01, 0.01}}

	var sawInside bool
	FastCovers(focus, DefaultResolutions,
		func(b orb.Bound) {
			if b.Intersects(far) {
				sawInside = true
			}
		},
		func(orb.Bound) {},
		func(orb.Bound) {},
	)
	if sawInside {
		t.Fatalf("a point far from the focus area was classified inside")
	}
}
