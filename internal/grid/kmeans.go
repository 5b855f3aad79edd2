// Package grid is the grid clusterer (C5): it bundles buildings into
// aggregation cells keyed by a precision parameter, using k-means over
// (x,y) coordinates. No pack example ships a k-means-over-float-pairs
// library (see DESIGN.md); this is a small, self-contained
// implementation in the teacher's chunked/seeded/deterministic
// Monte-Carlo style (internal/simulation/engine.go), applied here to a
// geometric rather than a statistical loop.
package grid

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"

	"github.com/L-Strobel/omod-sub001/internal/geo"
	"github.com/L-Strobel/omod-sub001/internal/model"
)

// Config controls the clustering.
type Config struct {
	// FocusPrecision is the target average building-to-centroid distance
	// inside the focus area, in meters (default 150, per spec §6).
	FocusPrecision float64
	// Seed makes clustering deterministic under repeated runs (P4/P5-
	// adjacent determinism expectations carried into §8 scenario 2).
	Seed int64
	// MaxIterations bounds Lloyd's algorithm; k-means here only needs to
	// be "close enough" (spec §4.5 says avg distance ≈ precision, not
	// exact), so a modest iteration cap keeps large areas tractable.
	MaxIterations int
}

// DefaultConfig matches spec §6's default grid_precision.
func DefaultConfig() Config {
	return Config{FocusPrecision: 150, Seed: 1, MaxIterations: 25}
}

// precisionAt relaxes the target precision quadratically with distance
// from the focus polygon, per §4.5: buffer-area cells may be coarser.
func precisionAt(focusPrecision, distFromFocus float64) float64 {
	if distFromFocus <= 0 {
		return focusPrecision
	}
	// Quadratic relaxation: the precision doubles 2km past the focus
	// boundary and keeps growing with the square of the distance (5x at
	// 4km, 10x at 6km).
	growth := 1 + (distFromFocus/2000)*(distFromFocus/2000)
	return focusPrecision * growth
}

// Cluster groups buildings into Cells. Buildings are partitioned first
// by their (approximate) distance band from the focus area so that
// precision relaxes smoothly from the focus outward, then k-means is run
// independently within each band — keeping focus-area cells tight while
// letting buffer-area cells grow coarser, as §4.5 requires.
func Cluster(buildings []*model.Building, cfg Config) []*model.Cell {
	if len(buildings) == 0 {
		return nil
	}

	bands := bandBuildings(buildings)

	var cells []*model.Cell
	var nextID int64
	for _, band := range bands {
		if len(band.buildings) == 0 {
			continue
		}
		precision := precisionAt(cfg.FocusPrecision, band.distFromFocus)
		k := clusterCount(band.buildings, precision)
		bandCells := kmeans(band.buildings, k, cfg, &nextID)
		cells = append(cells, bandCells...)
	}
	assignRegions(cells)
	return cells
}

type band struct {
	buildings     []*model.Building
	distFromFocus float64
}

// bandBuildings splits buildings into a focus band (distFromFocus=0) and
// a handful of buffer bands at increasing distance, approximated as the
// building's own flag plus a coarse quantization of Euclidean distance
// to the nearest focus-area building. This keeps the banding O(n) rather
// than requiring a full point-in-polygon re-test.
func bandBuildings(buildings []*model.Building) []band {
	var focusPts []orb.Point
	for _, b := range buildings {
		if b.InFocusArea() {
			focusPts = append(focusPts, b.Coord())
		}
	}

	const bandWidth = 2000.0
	byBand := make(map[int][]*model.Building)
	for _, b := range buildings {
		if b.InFocusArea() {
			byBand[0] = append(byBand[0], b)
			continue
		}
		d := nearestDistance(b.Coord(), focusPts)
		idx := 1 + int(d/bandWidth)
		byBand[idx] = append(byBand[idx], b)
	}

	bands := make([]band, 0, len(byBand))
	for idx, bs := range byBand {
		bands = append(bands, band{buildings: bs, distFromFocus: float64(idx) * bandWidth})
	}
	return bands
}

func nearestDistance(p orb.Point, candidates []orb.Point) float64 {
	if len(candidates) == 0 {
		return 0
	}
	best := geo.EuclideanDistance(p, candidates[0])
	for _, c := range candidates[1:] {
		if d := geo.EuclideanDistance(p, c); d < best {
			best = d
		}
	}
	return best
}

// clusterCount implements k = ceil(area / precision^2) from §4.5, where
// "area" is approximated as the band's bounding-box area.
func clusterCount(buildings []*model.Building, precision float64) int {
	if len(buildings) <= 1 {
		return len(buildings)
	}
	minX, minY := buildings[0].Coord()[0], buildings[0].Coord()[1]
	maxX, maxY := minX, minY
	for _, b := range buildings[1:] {
		c := b.Coord()
		if c[0] < minX {
			minX = c[0]
		}
		if c[0] > maxX {
			maxX = c[0]
		}
		if c[1] < minY {
			minY = c[1]
		}
		if c[1] > maxY {
			maxY = c[1]
		}
	}
	area := (maxX - minX) * (maxY - minY)
	if area <= 0 {
		return 1
	}
	k := int(math.Ceil(area / (precision * precision)))
	if k > len(buildings) {
		k = len(buildings)
	}
	if k < 1 {
		k = 1
	}
	return k
}

func kmeans(buildings []*model.Building, k int, cfg Config, nextID *int64) []*model.Cell {
	n := len(buildings)
	if k <= 0 {
		k = 1
	}
	if k >= n {
		// One building per cell — still build Cell wrappers so callers
		// have a uniform type to work with.
		cells := make([]*model.Cell, n)
		for i, b := range buildings {
			c := model.NewCell(*nextID)
			*nextID++
			c.Buildings = []*model.Building{b}
			c.Recompute(geo.EuclideanDistance)
			cells[i] = c
		}
		return cells
	}

	r := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(n)))

	// k-means++-style seeding would need cumulative distance weighting;
	// a seeded random sample of k distinct buildings as initial
	// centroids is simpler and, combined with Lloyd iterations, reaches
	// the same "average distance ~ precision" contract (§4.5) for the
	// cell sizes this tool targets.
	perm := r.Perm(n)
	centroids := make([]orb.Point, k)
	for i := 0; i < k; i++ {
		centroids[i] = buildings[perm[i]].Coord()
	}

	assignment := make([]int, n)
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 25
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, b := range buildings {
			best, bestDist := 0, geo.EuclideanDistance(b.Coord(), centroids[0])
			for j := 1; j < k; j++ {
				if d := geo.EuclideanDistance(b.Coord(), centroids[j]); d < bestDist {
					best, bestDist = j, d
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		sums := make([]orb.Point, k)
		counts := make([]int, k)
		for i, b := range buildings {
			j := assignment[i]
			sums[j][0] += b.Coord()[0]
			sums[j][1] += b.Coord()[1]
			counts[j]++
		}
		for j := range centroids {
			if counts[j] > 0 {
				centroids[j] = orb.Point{sums[j][0] / float64(counts[j]), sums[j][1] / float64(counts[j])}
			}
		}

		if !changed {
			break
		}
	}

	cells := make([]*model.Cell, 0, k)
	byCluster := make(map[int][]*model.Building, k)
	for i, b := range buildings {
		byCluster[assignment[i]] = append(byCluster[assignment[i]], b)
	}
	for j := 0; j < k; j++ {
		members := byCluster[j]
		if len(members) == 0 {
			continue
		}
		c := model.NewCell(*nextID)
		*nextID++
		c.Buildings = members
		c.Recompute(geo.EuclideanDistance)
		cells = append(cells, c)
	}
	return cells
}

// regionThresholds is the RegioStar7-like population-density ladder
// (people per km²) used to classify each cell's settlement structure,
// per SPEC_FULL.md's "RegionType ... computed from population density
// around a location's cell". Checked from the densest region down.
var regionThresholds = []struct {
	minPerSqKm float64
	region     model.RegionType
}{
	{4000, model.RegionMetroCore},
	{2000, model.RegionMetroUrban},
	{1500, model.RegionRegiopoleUrban},
	{1000, model.RegionRegiopoleRural},
	{500, model.RegionTownUrban},
	{150, model.RegionTownRural},
	{0, model.RegionRural},
}

func classifyRegion(perSqKm float64) model.RegionType {
	for _, b := range regionThresholds {
		if perSqKm >= b.minPerSqKm {
			return b.region
		}
	}
	return model.RegionRural
}

// assignRegions stamps a RegionType onto every cell (and, so
// single-building lookups also resolve correctly, every member
// building) by approximating each cell's footprint as a disc of radius
// AvgDistanceToSelf and dividing its population by that area. Feeds
// destchoice's per-(activity,region) distance-deterrence lookup.
func assignRegions(cells []*model.Cell) {
	for _, c := range cells {
		radius := c.AvgDistanceToSelf()
		areaSqKm := math.Pi * radius * radius / 1e6
		var perSqKm float64
		if areaSqKm > 0 {
			perSqKm = c.Population / areaSqKm
		}
		region := classifyRegion(perSqKm)
		c.SetRegion(region)
		for _, b := range c.Buildings {
			b.SetRegion(region)
		}
	}
}
