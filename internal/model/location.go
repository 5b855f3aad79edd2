package model

import "github.com/paulmach/orb"

// LocationOption is the polymorphic choice atom the destination-choice
// engine samples from. Only Building and Cell are "real" — they sit on
// the routing network; DummyLocation stands in for an OD-matrix zone that
// contains no buildings in the model area.
type LocationOption interface {
	// Coord is the projected (meters) coordinate.
	Coord() orb.Point
	// LatLon is the geographic (EPSG:4326) coordinate.
	LatLon() orb.Point
	// Zone is the OD zone this location belongs to, or nil.
	Zone() *ODZone
	// AvgDistanceToSelf is the mean distance used for same-location trips.
	AvgDistanceToSelf() float64
	// InFocusArea reports focus-area membership.
	InFocusArea() bool
	// IsReal reports whether this location can be routed on the network
	// (Building or Cell); false for DummyLocation.
	IsReal() bool
	// Attraction returns this location's attraction weight for activity t.
	Attraction(t ActivityType) float64
}

// Building is a concrete destination: a piece of OSM building geometry
// enriched with land use, POI counts, population share, and focus-area
// membership.
type Building struct {
	ID int64

	coord    orb.Point
	latlon   orb.Point
	odZone   *ODZone
	inFocus  bool
	region   RegionType

	// AreaSqm is the projected footprint area (used at construction time
	// to discard sub-10m² noise).
	AreaSqm float64

	LandUse  LandUse
	POICount map[POIType]int
	Population float64

	// Attr is the pre-computed attraction vector, one entry per activity.
	Attr map[ActivityType]float64

	// OwningCell is filled in by the grid clusterer; nil until then.
	OwningCell *Cell
}

func NewBuilding(id int64, coord, latlon orb.Point, inFocus bool) *Building {
	return &Building{
		ID:       id,
		coord:    coord,
		latlon:   latlon,
		inFocus:  inFocus,
		POICount: make(map[POIType]int),
		Attr:     make(map[ActivityType]float64),
	}
}

func (b *Building) Coord() orb.Point                   { return b.coord }
func (b *Building) LatLon() orb.Point                   { return b.latlon }
func (b *Building) Zone() *ODZone                       { return b.odZone }
func (b *Building) SetZone(z *ODZone)                   { b.odZone = z }
func (b *Building) AvgDistanceToSelf() float64          { return 0 }
func (b *Building) InFocusArea() bool                   { return b.inFocus }
func (b *Building) SetInFocusArea(v bool)               { b.inFocus = v }
func (b *Building) IsReal() bool                        { return true }
func (b *Building) Region() RegionType                  { return b.region }
func (b *Building) SetRegion(r RegionType)               { b.region = r }
func (b *Building) Attraction(t ActivityType) float64 {
	return b.Attr[t]
}

// Cell aggregates a set of buildings into a routing-grid unit. Its
// attraction vector is the element-wise sum of member attractions, its
// coordinate is the member centroid, and AvgDistanceToSelf is the mean
// member-to-centroid distance (always > 0 for a non-empty cell).
type Cell struct {
	ID int64

	coord  orb.Point
	latlon orb.Point

	Buildings []*Building

	avgDistSelf float64
	inFocus     bool
	region      RegionType
	odZone      *ODZone

	attr       map[ActivityType]float64
	Population float64
}

func NewCell(id int64) *Cell {
	return &Cell{ID: id, attr: make(map[ActivityType]float64)}
}

func (c *Cell) Coord() orb.Point          { return c.coord }
func (c *Cell) LatLon() orb.Point         { return c.latlon }
func (c *Cell) Zone() *ODZone             { return c.odZone }
func (c *Cell) SetZone(z *ODZone)         { c.odZone = z }
func (c *Cell) AvgDistanceToSelf() float64 { return c.avgDistSelf }
func (c *Cell) InFocusArea() bool          { return c.inFocus }
func (c *Cell) IsReal() bool               { return true }
func (c *Cell) Region() RegionType         { return c.region }
func (c *Cell) SetRegion(r RegionType)     { c.region = r }
func (c *Cell) Attraction(t ActivityType) float64 {
	return c.attr[t]
}

// Recompute recalculates coord, attraction, population and
// avgDistanceToSelf from the current Buildings slice. Call after the
// membership list is final (see internal/grid).
func (c *Cell) Recompute(dist func(a, b orb.Point) float64) {
	n := len(c.Buildings)
	if n == 0 {
		return
	}
	c.attr = make(map[ActivityType]float64)
	var sumX, sumY, sumLon, sumLat, sumPop float64
	anyFocus := false
	focusCount := 0
	for _, b := range c.Buildings {
		sumX += b.Coord()[0]
		sumY += b.Coord()[1]
		sumLon += b.LatLon()[0]
		sumLat += b.LatLon()[1]
		sumPop += b.Population
		for _, t := range AllActivityTypes() {
			c.attr[t] += b.Attraction(t)
		}
		if b.InFocusArea() {
			anyFocus = true
			focusCount++
		}
		b.OwningCell = c
	}
	c.coord = orb.Point{sumX / float64(n), sumY / float64(n)}
	c.latlon = orb.Point{sumLon / float64(n), sumLat / float64(n)}
	c.Population = sumPop
	// A cell is "in the focus area" if the majority of its members are.
	c.inFocus = anyFocus && focusCount*2 >= n

	var sumDist float64
	for _, b := range c.Buildings {
		sumDist += dist(b.Coord(), c.coord)
	}
	c.avgDistSelf = sumDist / float64(n)
	if c.avgDistSelf <= 0 {
		c.avgDistSelf = 1.0
	}
}

// DummyLocation is a placeholder for an OD-matrix zone with no buildings
// in the model area. It may only participate in the activities listed in
// TransferActivities.
type DummyLocation struct {
	coord              orb.Point
	latlon             orb.Point
	zone               *ODZone
	TransferActivities map[ActivityType]bool
}

func NewDummyLocation(zone *ODZone, coord, latlon orb.Point) *DummyLocation {
	return &DummyLocation{
		coord:              coord,
		latlon:             latlon,
		zone:               zone,
		TransferActivities: make(map[ActivityType]bool),
	}
}

func (d *DummyLocation) Coord() orb.Point          { return d.coord }
func (d *DummyLocation) LatLon() orb.Point         { return d.latlon }
func (d *DummyLocation) Zone() *ODZone             { return d.zone }
func (d *DummyLocation) AvgDistanceToSelf() float64 { return 1.0 } // sentinel
func (d *DummyLocation) InFocusArea() bool          { return false }
func (d *DummyLocation) IsReal() bool               { return false }
func (d *DummyLocation) Attraction(t ActivityType) float64 {
	if d.TransferActivities[t] {
		return 1.0
	}
	return 0.0
}

// LandUse is the first-intersecting-wins land-use label for a building.
type LandUse int

const (
	LandUseNone LandUse = iota
	LandUseResidential
	LandUseCommercial
	LandUseRetail
	LandUseIndustrial
)

// POIType is a coarse point-of-interest category used by C3/C6's
// attraction contribution terms.
type POIType int

const (
	POIShop POIType = iota
	POIOffice
	POISchool
	POIUniversity
	POIKindergarten
	POIWorship
	POIRestaurant
	POICafe
	POIFastFood
	POITourism
)

// ODZone is a named geographic polygon participating in a pairwise OD
// flow table.
type ODZone struct {
	Name      string
	Geometry  orb.Polygon
	Centroid  orb.Point

	// OriginActivity/DestActivity describe which flow table this zone's
	// outgoing edges belong to (only HOME->WORK is supported, per C7).
	OriginActivity ActivityType
	DestActivity   ActivityType

	// Outflows maps destination zone name to flow volume.
	Outflows map[string]float64

	InFocusArea bool
}

func NewODZone(name string) *ODZone {
	return &ODZone{Name: name, Outflows: make(map[string]float64)}
}
