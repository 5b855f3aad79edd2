package routing

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/golang/geo/s2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/L-Strobel/omod-sub001/internal/geo"
	"github.com/L-Strobel/omod-sub001/internal/model"
)

// Cache is the two-tier bounded associative store from spec §4.4: an
// outer LRU keyed by origin, holding an inner LRU keyed by destination.
// Both tiers evict their eldest entry when full, bounding total memory
// to O(sizeLimit * sizeLimitSec * 4B) as required.
type Cache struct {
	provider Provider

	sizeLimit    int
	sizeLimitSec int

	outer *lru.Cache[int64, *lru.Cache[int64, float64]]
	// outerMu serializes creation of a new inner table for an origin not
	// yet seen; reads/writes of an existing inner table go through its
	// own lock-free lru.Cache (already internally synchronized).
	outerMu sync.Mutex

	ids       map[model.LocationOption]int64
	locations map[int64]model.LocationOption
	idMu      sync.Mutex
	nextID    int64

	blacklist   map[int64]bool
	blacklistMu sync.RWMutex

	// inFlight coalesces concurrent misses for the same (origin,dest)
	// pair so a burst of requests for the same edge computes it once,
	// per spec §5.
	inFlight   map[[2]int64]*inFlightCall
	inFlightMu sync.Mutex
}

type inFlightCall struct {
	done chan struct{}
	dist float64
	err  error
}

// NewCache builds an empty cache. sizeLimit bounds the number of
// distinct origins tracked; sizeLimitSec bounds destinations tracked per
// origin.
func NewCache(provider Provider, sizeLimit, sizeLimitSec int) *Cache {
	if sizeLimit <= 0 {
		sizeLimit = 1000
	}
	if sizeLimitSec <= 0 {
		sizeLimitSec = 1000
	}
	outer, _ := lru.New[int64, *lru.Cache[int64, float64]](sizeLimit)
	return &Cache{
		provider:     provider,
		sizeLimit:    sizeLimit,
		sizeLimitSec: sizeLimitSec,
		outer:        outer,
		ids:          make(map[model.LocationOption]int64),
		locations:    make(map[int64]model.LocationOption),
		blacklist:    make(map[int64]bool),
		inFlight:     make(map[[2]int64]*inFlightCall),
	}
}

// idFor interns a LocationOption to a stable int64 key, assigning one on
// first sight. Keys are seeded from the location's s2 leaf cell so that
// geographically close locations land in nearby key space (an eviction
// tie-break nicety, not a correctness requirement); the rare leaf-cell
// collision is disambiguated by probing with the sequential counter.
func (c *Cache) idFor(loc model.LocationOption) int64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	if id, ok := c.ids[loc]; ok {
		return id
	}

	ll := loc.LatLon()
	id := int64(uint64(s2.CellIDFromLatLng(s2.LatLngFromDegrees(ll[1], ll[0]))) >> 1)
	for {
		existing, taken := c.locations[id]
		if !taken || existing == loc {
			break
		}
		id = c.nextID
		c.nextID++
	}

	c.ids[loc] = id
	c.locations[id] = loc
	return id
}

func (c *Cache) isBlacklisted(id int64) bool {
	c.blacklistMu.RLock()
	defer c.blacklistMu.RUnlock()
	return c.blacklist[id]
}

func (c *Cache) blacklistID(id int64) {
	c.blacklistMu.Lock()
	defer c.blacklistMu.Unlock()
	c.blacklist[id] = true
}

func (c *Cache) innerFor(originID int64) *lru.Cache[int64, float64] {
	c.outerMu.Lock()
	defer c.outerMu.Unlock()
	if inner, ok := c.outer.Get(originID); ok {
		return inner
	}
	inner, _ := lru.New[int64, float64](c.sizeLimitSec)
	c.outer.Add(originID, inner)
	return inner
}

// DistancesFromTo resolves routed distances (meters) from origin to each
// of destinations, per spec §4.4: a DummyLocation (or a blacklisted,
// previously-unreachable endpoint) always falls back to Euclidean;
// everything else is looked up in the inner table, computed and
// memoized on miss, and falls back to Euclidean with the endpoint
// blacklisted if the provider reports it unreachable.
func (c *Cache) DistancesFromTo(ctx context.Context, origin model.LocationOption, destinations []model.LocationOption) []float64 {
	out := make([]float64, len(destinations))

	if !origin.IsReal() {
		for i, d := range destinations {
			out[i] = euclid(origin, d)
		}
		return out
	}

	originID := c.idFor(origin)
	if c.isBlacklisted(originID) {
		for i, d := range destinations {
			out[i] = euclid(origin, d)
		}
		return out
	}

	inner := c.innerFor(originID)

	for i, dest := range destinations {
		if !dest.IsReal() {
			out[i] = euclid(origin, dest)
			continue
		}

		destID := c.idFor(dest)
		if c.isBlacklisted(destID) {
			out[i] = euclid(origin, dest)
			continue
		}

		if v, ok := inner.Get(destID); ok {
			out[i] = v
			continue
		}

		dist, err := c.computeCoalesced(ctx, originID, destID, origin, dest)
		if err != nil {
			if errors.Is(err, ErrPointUnreachable) {
				c.blacklistID(destID)
			}
			out[i] = euclid(origin, dest)
			continue
		}
		inner.Add(destID, dist)
		out[i] = dist
	}
	return out
}

func euclid(origin, dest model.LocationOption) float64 {
	if origin == dest {
		return origin.AvgDistanceToSelf()
	}
	return geo.EuclideanDistance(origin.Coord(), dest.Coord())
}

// computeCoalesced ensures only one in-flight provider call exists for a
// given (origin,dest) pair at a time, so a burst of cache misses for the
// same edge across the worker pool does not double-compute it.
func (c *Cache) computeCoalesced(ctx context.Context, originID, destID int64, origin, dest model.LocationOption) (float64, error) {
	key := [2]int64{originID, destID}

	c.inFlightMu.Lock()
	if call, ok := c.inFlight[key]; ok {
		c.inFlightMu.Unlock()
		<-call.done
		return call.dist, call.err
	}
	call := &inFlightCall{done: make(chan struct{})}
	c.inFlight[key] = call
	c.inFlightMu.Unlock()

	// Providers speak geographic coordinates (see Provider); only the
	// Euclidean fallbacks above work in the projected CRS.
	call.dist, call.err = c.provider.Distance(ctx, origin.LatLon(), dest.LatLon())

	c.inFlightMu.Lock()
	delete(c.inFlight, key)
	c.inFlightMu.Unlock()
	close(call.done)

	return call.dist, call.err
}

// PriorityFill precomputes distances among the top-N locations by
// priority (e.g. population or attraction), as spec §4.4's `load`
// describes: "fill by computing the top-N locations by priority ...
// and computing all-pairs routed distances among them". N is the
// cache's outer size limit.
func (c *Cache) PriorityFill(ctx context.Context, locations []model.LocationOption, priority func(model.LocationOption) float64, nWorkers int) {
	ranked := append([]model.LocationOption(nil), locations...)
	sort.Slice(ranked, func(i, j int) bool { return priority(ranked[i]) > priority(ranked[j]) })

	n := c.sizeLimit
	if n > len(ranked) {
		n = len(ranked)
	}
	top := ranked[:n]

	sem := make(chan struct{}, maxInt(nWorkers, 1))
	var wg sync.WaitGroup
	for _, origin := range top {
		if !origin.IsReal() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(origin model.LocationOption) {
			defer wg.Done()
			defer func() { <-sem }()
			c.DistancesFromTo(ctx, origin, top)
		}(origin)
	}
	wg.Wait()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// persistedMatrix is the on-disk form from spec §4.4: parallel lat/lon
// coordinate slices plus a dense float matrix, where -1 marks an absent
// entry. gob is used rather than the tree's usual go-json (see
// area.writeCache) because this is a dense numeric matrix, not a
// document to stay human-readable or interoperate with another tool --
// a self-describing binary encoder is the better fit, and gob is the
// standard-library way to get one without hand-rolling a binary format.
type persistedMatrix struct {
	Lats   []float64
	Lons   []float64
	Matrix [][]float32
}

// Flush persists the current matrix to path, per spec §4.4. Only
// entries already computed (present in the in-memory LRU tables at the
// moment of the call) are written; entries an LRU tier has since
// evicted are simply absent (-1) on reload, same as a cache miss.
func (c *Cache) Flush(path string) error {
	c.idMu.Lock()
	ids := make([]int64, 0, len(c.locations))
	for id := range c.locations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pm := persistedMatrix{Lats: make([]float64, len(ids)), Lons: make([]float64, len(ids))}
	indexOf := make(map[int64]int, len(ids))
	for i, id := range ids {
		ll := c.locations[id].LatLon()
		pm.Lats[i] = ll[1]
		pm.Lons[i] = ll[0]
		indexOf[id] = i
	}
	c.idMu.Unlock()

	n := len(ids)
	pm.Matrix = make([][]float32, n)
	for i := range pm.Matrix {
		row := make([]float32, n)
		for j := range row {
			row[j] = -1
		}
		pm.Matrix[i] = row
	}
	for i, originID := range ids {
		inner, ok := c.outer.Peek(originID)
		if !ok {
			continue
		}
		for _, destID := range inner.Keys() {
			v, ok := inner.Peek(destID)
			if !ok {
				continue
			}
			j, ok := indexOf[destID]
			if !ok {
				continue
			}
			pm.Matrix[i][j] = float32(v)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(&pm)
}

// Load reads a persisted matrix written by Flush and seeds the cache's
// inner tables from it, remapping indices by exact lat-lon match against
// locations, per spec §4.4. A coordinate in the file with no match among
// locations is simply skipped, as is a -1 (absent) cell.
func (c *Cache) Load(path string, locations []model.LocationOption) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var pm persistedMatrix
	if err := gob.NewDecoder(f).Decode(&pm); err != nil {
		return err
	}

	byLatLon := make(map[[2]float64]model.LocationOption, len(locations))
	for _, loc := range locations {
		ll := loc.LatLon()
		byLatLon[[2]float64{ll[1], ll[0]}] = loc
	}

	idxToLoc := make([]model.LocationOption, len(pm.Lats))
	for i := range pm.Lats {
		idxToLoc[i] = byLatLon[[2]float64{pm.Lats[i], pm.Lons[i]}]
	}

	for i, origin := range idxToLoc {
		if origin == nil || i >= len(pm.Matrix) {
			continue
		}
		originID := c.idFor(origin)
		inner := c.innerFor(originID)
		for j, dest := range idxToLoc {
			if dest == nil || j >= len(pm.Matrix[i]) {
				continue
			}
			v := pm.Matrix[i][j]
			if v < 0 {
				continue
			}
			inner.Add(c.idFor(dest), float64(v))
		}
	}
	return nil
}
