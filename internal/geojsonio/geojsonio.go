// Package geojsonio reads the GeoJSON inputs OMOD's CLI accepts: the
// focus-area polygon, an optional census population overlay, and an
// optional OD-calibration zone table (C3).
package geojsonio

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/L-Strobel/omod-sub001/internal/area"
	"github.com/L-Strobel/omod-sub001/internal/model"
)

// LoadFocusPolygon reads the positional area GeoJSON argument and
// returns its outer polygon in lat-lon. A FeatureCollection's first
// feature is used and must be a Polygon or MultiPolygon (an error
// otherwise); a single Feature or a bare Polygon/MultiPolygon geometry
// file is accepted as well. Of a MultiPolygon, only the first polygon
// is returned.
func LoadFocusPolygon(path string) (orb.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading area geojson %q: %w", path, err)
	}
	geom, err := firstGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parsing area geojson %q: %w", path, err)
	}
	switch g := geom.(type) {
	case orb.Polygon:
		return g, nil
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, fmt.Errorf("area geojson %q: empty multipolygon", path)
		}
		return g[0], nil
	default:
		return nil, fmt.Errorf("area geojson %q: expected a polygon geometry, got %T", path, geom)
	}
}

// LoadCensus reads a census GeoJSON FeatureCollection, one polygon per
// zone, with a numeric "population" property on each feature. An empty
// path returns no zones, not an error.
func LoadCensus(path string) ([]area.CensusZone, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading census geojson %q: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing census geojson %q: %w", path, err)
	}
	zones := make([]area.CensusZone, 0, len(fc.Features))
	for _, f := range fc.Features {
		poly, ok := polygonOf(f.Geometry)
		if !ok {
			continue
		}
		pop := f.Properties.MustFloat64("population", 0)
		zones = append(zones, area.CensusZone{Geometry: poly, Population: pop})
	}
	return zones, nil
}

// LoadODZones reads an OD-calibration GeoJSON FeatureCollection, one
// polygon per zone, with "name" and an "outflows" object property
// mapping destination zone name to flow volume. An empty path returns
// no zones, not an error.
func LoadODZones(path string) ([]*model.ODZone, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OD geojson %q: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing OD geojson %q: %w", path, err)
	}
	zones := make([]*model.ODZone, 0, len(fc.Features))
	for _, f := range fc.Features {
		poly, ok := polygonOf(f.Geometry)
		if !ok {
			continue
		}
		name, _ := f.Properties["name"].(string)
		z := model.NewODZone(name)
		z.Geometry = poly
		z.Centroid = poly.Bound().Center()
		z.OriginActivity = model.Home
		z.DestActivity = model.Work
		if raw, ok := f.Properties["outflows"].(map[string]any); ok {
			for dest, v := range raw {
				if f64, ok := v.(float64); ok {
					z.Outflows[dest] = f64
				}
			}
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// LocationsByZone partitions buildings by which OD zone polygon
// contains them, for calibration's "locations in zone" lookups, and
// stamps the containing zone onto each building so the destination-
// choice engine's k-factor lookups resolve the building's zone later.
// A building outside every zone is dropped from the partition (and
// keeps a nil zone).
func LocationsByZone(buildings []*model.Building, zones []*model.ODZone) map[string][]model.LocationOption {
	out := make(map[string][]model.LocationOption, len(zones))
	for _, b := range buildings {
		ll := b.LatLon()
		for _, z := range zones {
			if planar.PolygonContains(z.Geometry, ll) {
				b.SetZone(z)
				out[z.Name] = append(out[z.Name], b)
				break
			}
		}
	}
	return out
}

// StampZoneFocus marks every OD zone that overlaps the focus polygon
// (both in lat-lon), which the OD calibrator's transition pass uses to
// restrict itself to zone pairs inside the model area. Overlap is
// tested by vertex containment in both directions plus the zone
// centroid, which covers every partial-overlap arrangement except two
// polygons crossing only through edge interiors — not a shape real
// traffic-analysis zones against a real focus area produce.
func StampZoneFocus(zones []*model.ODZone, focus orb.Polygon) {
	for _, z := range zones {
		z.InFocusArea = polygonsOverlap(z.Geometry, focus) || planar.PolygonContains(focus, z.Centroid)
	}
}

func polygonsOverlap(a, b orb.Polygon) bool {
	return anyVertexIn(a, b) || anyVertexIn(b, a)
}

func anyVertexIn(p, container orb.Polygon) bool {
	for _, ring := range p {
		for _, pt := range ring {
			if planar.PolygonContains(container, pt) {
				return true
			}
		}
	}
	return false
}

func firstGeometry(data []byte) (orb.Geometry, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		return fc.Features[0].Geometry, nil
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil {
		return f.Geometry, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

func polygonOf(g orb.Geometry) (orb.Polygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return v, true
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, false
		}
		return v[0], true
	default:
		return nil, false
	}
}
