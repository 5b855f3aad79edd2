// Package geo provides OMOD's spatial primitives (C2): a focus-area
// centered Transverse-Mercator projection between WGS84 and a local
// meter-based model CRS, and fastCovers, a recursive bounding-box tiler
// used to stamp focus-area membership without testing every building
// against the full polygon.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// earthRadiusM is the mean Earth radius used by the spherical
// Transverse-Mercator approximation below. City-scale focus areas (tens
// of km across) never accumulate enough ellipsoidal error for this to
// matter, which is why no ellipsoidal projection library is pulled in
// here (see DESIGN.md).
const earthRadiusM = 6371000.0

// Projector converts between geographic (lon,lat) and a local projected
// meter CRS centered on a focus area's longitude, per spec §4.2.
type Projector struct {
	centralLon float64 // radians
	centralLat float64 // radians
}

// NewProjector builds a projector centered on the centroid of the focus
// polygon, as required by spec §4.2.
func NewProjector(focus orb.Polygon) *Projector {
	c := Centroid(focus)
	return &Projector{
		centralLon: c[0] * math.Pi / 180,
		centralLat: c[1] * math.Pi / 180,
	}
}

// Centroid returns the unweighted centroid of a polygon's outer ring,
// used to pick the projection's central meridian.
func Centroid(p orb.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}
	ring := p[0]
	var sumX, sumY float64
	n := len(ring)
	for _, pt := range ring {
		sumX += pt[0]
		sumY += pt[1]
	}
	return orb.Point{sumX / float64(n), sumY / float64(n)}
}

// ToModelCRS projects a geographic point to the meter-based model CRS.
func (p *Projector) ToModelCRS(ll orb.Point) orb.Point {
	lon := ll[0] * math.Pi / 180
	lat := ll[1] * math.Pi / 180

	dLon := lon - p.centralLon
	b := math.Cos(lat) * math.Sin(dLon)
	x := 0.5 * earthRadiusM * math.Log((1+b)/(1-b))
	y := earthRadiusM * (math.Atan2(math.Tan(lat), math.Cos(dLon)) - p.centralLat)
	return orb.Point{x, y}
}

// ToLatLon is the inverse of ToModelCRS.
func (p *Projector) ToLatLon(m orb.Point) orb.Point {
	x, y := m[0], m[1]
	d := y/earthRadiusM + p.centralLat
	lon := p.centralLon + math.Atan2(math.Sinh(x/earthRadiusM), math.Cos(d))
	lat := math.Asin(math.Sin(d) / math.Cosh(x/earthRadiusM))
	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}

// ProjectPolygon projects every ring/point of a polygon to the model CRS.
func (p *Projector) ProjectPolygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		out[i] = make(orb.Ring, len(ring))
		for j, pt := range ring {
			out[i][j] = p.ToModelCRS(pt)
		}
	}
	return out
}

// EuclideanDistance is the straight-line distance between two points
// already in the model CRS (meters).
func EuclideanDistance(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}
