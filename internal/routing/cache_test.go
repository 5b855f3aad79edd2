package routing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

type countingProvider struct {
	calls int
	fail  map[orb.Point]bool
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Distance(_ context.Context, origin, dest orb.Point) (float64, error) {
	p.calls++
	if p.fail[dest] {
		return 0, ErrPointUnreachable
	}
	return Beeline{}.Distance(context.Background(), origin, dest)
}

func (p *countingProvider) DistanceOneToMany(ctx context.Context, origin orb.Point, dests []orb.Point) ([]float64, error) {
	out := make([]float64, len(dests))
	for i, d := range dests {
		v, err := p.Distance(ctx, origin, d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestDistancesFromToMemoizesProviderCalls(t *testing.T) {
	provider := &countingProvider{fail: map[orb.Point]bool{}}
	cache := NewCache(provider, 10, 10)

	origin := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{0, 0}, true)
	dest := model.NewBuilding(2, orb.Point{1000, 0}, orb.Point{0.01, 0}, true)

	first := cache.DistancesFromTo(context.Background(), origin, []model.LocationOption{dest})
	second := cache.DistancesFromTo(context.Background(), origin, []model.LocationOption{dest})

	if first[0] != second[0] {
		t.Errorf("expected memoized distance to be stable, got %v vs %v", first[0], second[0])
	}
	if provider.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", provider.calls)
	}
}

func TestDistancesFromToBlacklistsUnreachableDestination(t *testing.T) {
	destLatLon := orb.Point{0.01, 0}
	provider := &countingProvider{fail: map[orb.Point]bool{destLatLon: true}}
	cache := NewCache(provider, 10, 10)

	origin := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{0, 0}, true)
	dest := model.NewBuilding(2, orb.Point{1000, 0}, destLatLon, true)

	out := cache.DistancesFromTo(context.Background(), origin, []model.LocationOption{dest})
	if out[0] <= 0 {
		t.Errorf("expected a Euclidean fallback distance, got %v", out[0])
	}

	calls := provider.calls
	cache.DistancesFromTo(context.Background(), origin, []model.LocationOption{dest})
	if provider.calls != calls {
		t.Errorf("expected the blacklisted destination to skip the provider on retry, got %d new calls", provider.calls-calls)
	}
}

func TestDistancesFromToDummyOriginUsesEuclidean(t *testing.T) {
	provider := &countingProvider{fail: map[orb.Point]bool{}}
	cache := NewCache(provider, 10, 10)

	zone := model.NewODZone("z")
	origin := model.NewDummyLocation(zone, orb.Point{0, 0}, orb.Point{0, 0})
	dest := model.NewBuilding(2, orb.Point{1000, 0}, orb.Point{0.01, 0}, true)

	out := cache.DistancesFromTo(context.Background(), origin, []model.LocationOption{dest})
	if out[0] <= 0 {
		t.Errorf("expected a positive Euclidean distance for a dummy origin, got %v", out[0])
	}
	if provider.calls != 0 {
		t.Errorf("expected no provider calls for a non-routable origin, got %d", provider.calls)
	}
}

func TestFlushLoadRoundTripsDistances(t *testing.T) {
	provider := &countingProvider{fail: map[orb.Point]bool{}}
	cache := NewCache(provider, 10, 10)

	a := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{13.40, 52.50}, true)
	b := model.NewBuilding(2, orb.Point{1000, 0}, orb.Point{13.41, 52.50}, true)

	want := cache.DistancesFromTo(context.Background(), a, []model.LocationOption{b})

	path := filepath.Join(t.TempDir(), "matrix.gob")
	if err := cache.Flush(path); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded := NewCache(&countingProvider{fail: map[orb.Point]bool{}}, 10, 10)
	if err := reloaded.Load(path, []model.LocationOption{a, b}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// The persisted matrix stores float32, so the reloaded value is the
	// flushed distance rounded to float32.
	got := reloaded.DistancesFromTo(context.Background(), a, []model.LocationOption{b})
	if got[0] != float64(float32(want[0])) {
		t.Errorf("expected the reloaded distance to equal the flushed one, got %v vs %v", got[0], want[0])
	}
	if reloaded.provider.(*countingProvider).calls != 0 {
		t.Errorf("expected the reload to be served entirely from the persisted matrix, got %d provider calls", reloaded.provider.(*countingProvider).calls)
	}
}

func TestLoadReturnsErrorWhenFileMissing(t *testing.T) {
	cache := NewCache(&countingProvider{fail: map[orb.Point]bool{}}, 10, 10)
	if err := cache.Load(filepath.Join(t.TempDir(), "missing.gob"), nil); err == nil {
		t.Error("expected an error loading a nonexistent matrix file")
	}
}

func TestIdForIsStablePerLocation(t *testing.T) {
	cache := NewCache(&countingProvider{fail: map[orb.Point]bool{}}, 10, 10)
	b := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{13.4, 52.5}, true)

	id1 := cache.idFor(b)
	id2 := cache.idFor(b)
	if id1 != id2 {
		t.Errorf("expected the same location to always map to the same id, got %v vs %v", id1, id2)
	}
}
