package osmsource

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

func tags(kv ...string) osm.Tags {
	var t osm.Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, osm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

func TestClassifyTagsBuilding(t *testing.T) {
	f, ok := classifyTags(tags("building", "yes"))
	if !ok || f.Kind != KindBuilding {
		t.Fatalf("expected a classified building, got %v ok=%v", f, ok)
	}
}

func TestClassifyTagsBuildingNoIsIgnored(t *testing.T) {
	if _, ok := classifyTags(tags("building", "no")); ok {
		t.Fatal("building=no should not classify as a building")
	}
}

func TestClassifyTagsPOIAmenity(t *testing.T) {
	f, ok := classifyTags(tags("amenity", "school"))
	if !ok || f.Kind != KindPOI || f.POI != POISchool {
		t.Fatalf("expected a school POI, got %v ok=%v", f, ok)
	}
}

func TestClassifyTagsLandUse(t *testing.T) {
	f, ok := classifyTags(tags("landuse", "industrial"))
	if !ok || f.Kind != KindLandUse || f.LandUse != LandUseIndustrial {
		t.Fatalf("expected industrial land use, got %v ok=%v", f, ok)
	}
}

func TestClassifyTagsUnrecognizedIsIgnored(t *testing.T) {
	if _, ok := classifyTags(tags("highway", "residential")); ok {
		t.Fatal("unrelated tags should not classify as any feature")
	}
}

func TestResolveRingRequiresAllNodesSeen(t *testing.T) {
	nodeCoord := map[osm.NodeID]orb.Point{
		1: {0, 0}, 2: {1, 0}, 3: {1, 1}, 4: {0, 0},
	}
	way := &osm.Way{Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}}
	ring := resolveRing(way, nodeCoord)
	if len(ring) != 4 {
		t.Fatalf("expected a closed 4-point ring, got %d points", len(ring))
	}

	wayMissing := &osm.Way{Nodes: osm.WayNodes{{ID: 1}, {ID: 99}, {ID: 3}, {ID: 4}}}
	if r := resolveRing(wayMissing, nodeCoord); r != nil {
		t.Fatalf("expected nil ring when a node coordinate is unresolved, got %v", r)
	}
}

func TestResolveMultipolygonUsesOuterMembersOnly(t *testing.T) {
	wayRing := map[osm.WayID]orb.Ring{
		1: {{0, 0}, {1, 0}, {1, 1}, {0, 0}},
		2: {{5, 5}, {6, 5}, {6, 6}, {5, 5}},
	}
	rel := &osm.Relation{Members: osm.Members{
		{Type: osm.TypeWay, Ref: 1, Role: "outer"},
		{Type: osm.TypeWay, Ref: 2, Role: "inner"},
	}}
	poly := resolveMultipolygon(rel, wayRing)
	if len(poly) != 1 {
		t.Fatalf("expected only the outer ring included, got %d rings", len(poly))
	}
}
