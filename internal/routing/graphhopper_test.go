package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
)

func TestGraphHopperDistanceOneToManyParsesMatrixResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"distances":[[0,1200,3400]]}`))
	}))
	defer srv.Close()

	g := NewGraphHopper(srv.URL, "car")
	dists, err := g.DistanceOneToMany(context.Background(), orb.Point{0, 0}, []orb.Point{{0, 0.01}, {0, 0.02}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The matrix response includes the origin as column 0; the provider
	// strips it so the result is one distance per destination.
	if len(dists) != 2 || dists[0] != 1200 || dists[1] != 3400 {
		t.Errorf("unexpected distances: %v", dists)
	}
}

func TestGraphHopperNotFoundIsPointUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGraphHopper(srv.URL, "car")
	_, err := g.Distance(context.Background(), orb.Point{0, 0}, orb.Point{0, 0.01})
	if !errors.Is(err, ErrPointUnreachable) {
		t.Fatalf("expected ErrPointUnreachable for a 404 response, got %v", err)
	}
}

func TestGraphHopperNameIncludesProfile(t *testing.T) {
	g := NewGraphHopper("http://example.invalid", "bike")
	if g.Name() != "GRAPHHOPPER:bike" {
		t.Errorf("expected profile in provider name, got %q", g.Name())
	}
}
