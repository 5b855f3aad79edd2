// Package osmsource streams an OSM PBF extract into the raw geometry
// primitives the area builder (C3) classifies: buildings, POIs, and
// land-use areas. It is a thin layer over paulmach/osm + osmpbf — the
// pack's OSM streaming library — that resolves way/relation geometry
// from node coordinates seen earlier in the same pass, since PBF files
// order nodes before the ways/relations that reference them.
package osmsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// Kind classifies a streamed tagged object.
type Kind int

const (
	KindBuilding Kind = iota
	KindPOI
	KindLandUse
)

// POIKind mirrors model.POIType without importing internal/model here,
// keeping this package a leaf the area builder translates from.
type POIKind string

const (
	POIShop         POIKind = "shop"
	POIOffice       POIKind = "office"
	POISchool       POIKind = "school"
	POIUniversity   POIKind = "university"
	POIKindergarten POIKind = "kindergarten"
	POIWorship      POIKind = "worship"
	POIRestaurant   POIKind = "restaurant"
	POICafe         POIKind = "cafe"
	POIFastFood     POIKind = "fast_food"
	POITourism      POIKind = "tourism"
)

// LandUseKind mirrors model.LandUse.
type LandUseKind string

const (
	LandUseResidential LandUseKind = "residential"
	LandUseCommercial  LandUseKind = "commercial"
	LandUseRetail      LandUseKind = "retail"
	LandUseIndustrial  LandUseKind = "industrial"
)

// Feature is one classified, geometry-resolved OSM object.
type Feature struct {
	Kind     Kind
	POI      POIKind
	LandUse  LandUseKind
	Geometry orb.Geometry // orb.Polygon for buildings/landuse, orb.Point for POI nodes
}

// Stream opens path and invokes emit for every building/POI/land-use
// feature it can resolve. osmpbf decodes with GOMAXPROCS goroutines.
func Stream(ctx context.Context, path string, emit func(Feature)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("osmsource: opening %q: %w", path, err)
	}
	defer f.Close()

	procs := runtime.GOMAXPROCS(-1)
	scanner := osmpbf.New(ctx, f, procs)
	defer scanner.Close()

	nodeCoord := make(map[osm.NodeID]orb.Point)
	wayRing := make(map[osm.WayID]orb.Ring)

	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodeCoord[o.ID] = orb.Point{o.Lon, o.Lat}
			if f, ok := classifyTags(o.Tags); ok && f.Kind == KindPOI {
				f.Geometry = orb.Point{o.Lon, o.Lat}
				emit(f)
			}
		case *osm.Way:
			ring := resolveRing(o, nodeCoord)
			if len(ring) >= 4 {
				wayRing[o.ID] = ring
			}
			if f, ok := classifyTags(o.Tags); ok && len(ring) >= 4 {
				f.Geometry = orb.Polygon{ring}
				emit(f)
			}
		case *osm.Relation:
			f, ok := classifyTags(o.Tags)
			if !ok {
				continue
			}
			poly := resolveMultipolygon(o, wayRing)
			if len(poly) == 0 {
				continue
			}
			f.Geometry = poly
			emit(f)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("osmsource: scanning %q: %w", path, err)
	}
	return nil
}

func resolveRing(w *osm.Way, nodeCoord map[osm.NodeID]orb.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		pt, ok := nodeCoord[n.ID]
		if !ok {
			return nil
		}
		ring = append(ring, pt)
	}
	return ring
}

// resolveMultipolygon assembles a relation's "outer" member ways into a
// polygon. This is a simplification of full ring merging (closed ways
// are used directly, unclosed member chains are not stitched across
// segment boundaries): OMOD's census/landuse relations are almost
// always single-way outers in practice, and this covers that case
// exactly while degrading gracefully (dropping the relation) otherwise.
func resolveMultipolygon(rel *osm.Relation, wayRing map[osm.WayID]orb.Ring) orb.Polygon {
	var poly orb.Polygon
	for _, m := range rel.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		if m.Role != "outer" && m.Role != "" {
			continue
		}
		ring, ok := wayRing[osm.WayID(m.Ref)]
		if !ok || len(ring) < 4 {
			continue
		}
		poly = append(poly, ring)
	}
	return poly
}

func classifyTags(tags osm.Tags) (Feature, bool) {
	m := tags.Map()

	if v := m["building"]; v != "" && v != "no" {
		return Feature{Kind: KindBuilding}, true
	}

	poiTagOrder := []struct {
		key  string
		kind POIKind
	}{
		{"shop", POIShop},
		{"office", POIOffice},
	}
	for _, t := range poiTagOrder {
		if m[t.key] != "" {
			return Feature{Kind: KindPOI, POI: t.kind}, true
		}
	}
	if v := m["amenity"]; v != "" {
		switch v {
		case "school":
			return Feature{Kind: KindPOI, POI: POISchool}, true
		case "university":
			return Feature{Kind: KindPOI, POI: POIUniversity}, true
		case "kindergarten":
			return Feature{Kind: KindPOI, POI: POIKindergarten}, true
		case "place_of_worship":
			return Feature{Kind: KindPOI, POI: POIWorship}, true
		case "restaurant":
			return Feature{Kind: KindPOI, POI: POIRestaurant}, true
		case "cafe":
			return Feature{Kind: KindPOI, POI: POICafe}, true
		case "fast_food":
			return Feature{Kind: KindPOI, POI: POIFastFood}, true
		}
	}
	if m["tourism"] != "" {
		return Feature{Kind: KindPOI, POI: POITourism}, true
	}

	if v := m["landuse"]; v != "" {
		switch v {
		case "residential":
			return Feature{Kind: KindLandUse, LandUse: LandUseResidential}, true
		case "commercial":
			return Feature{Kind: KindLandUse, LandUse: LandUseCommercial}, true
		case "retail":
			return Feature{Kind: KindLandUse, LandUse: LandUseRetail}, true
		case "industrial":
			return Feature{Kind: KindLandUse, LandUse: LandUseIndustrial}, true
		}
	}

	return Feature{}, false
}
