// Package transit is the public-transit leg of C11's mode & trip
// resolver: a GTFS-backed schedule lookup (via jamespfennell/gtfs) with
// a constant-speed fallback, per spec §4.11.
package transit

import (
	"context"
	"fmt"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// constantSpeedKmh is the fallback public-transit speed spec §4.11
// names (22.5 km/h) used whenever no GTFS feed is configured or no
// itinerary is found for the requested departure.
const constantSpeedKmh = 22.5

// Leg is a resolved public-transit trip: distance (km), travel time
// (minutes), and optionally path coordinates when --return_path_coords
// is set (Static gives the origin and destination points only; Beeline
// gives none).
type Leg struct {
	DistanceKm float64
	TimeMin    float64
	PathLats   []float64
	PathLons   []float64
}

// Provider answers "how would I get from origin to dest if I departed
// at departure" for public transit. Points are geographic (lon,lat),
// matching the GTFS feed's stop coordinates.
type Provider interface {
	Query(ctx context.Context, origin, dest orb.Point, departure time.Time, returnPath bool) (Leg, error)
}

// Beeline is the always-available fallback: constant-speed great-circle.
type Beeline struct{}

func (Beeline) Query(_ context.Context, origin, dest orb.Point, _ time.Time, _ bool) (Leg, error) {
	distM := orbgeo.DistanceHaversine(origin, dest)
	distKm := distM / 1000
	return Leg{
		DistanceKm: distKm,
		TimeMin:    distKm / constantSpeedKmh * 60,
	}, nil
}

// Static wraps a parsed GTFS static feed (gtfs.Static's Stops/Trips/
// StopTimes). A query snaps origin and dest to their nearest stops and
// takes the first direct scheduled trip found by earliestItinerary;
// service calendars are not consulted. It falls back to Beeline when
// the feed has no stops or no such trip exists.
type Static struct {
	feed     *gtfs.Static
	fallback Provider
}

// LoadStatic parses a GTFS static feed (a zipped directory tree) for
// use as OMOD's transit provider.
func LoadStatic(data []byte) (*Static, error) {
	feed, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("transit: parsing GTFS static feed: %w", err)
	}
	return &Static{feed: feed, fallback: Beeline{}}, nil
}

func (s *Static) Query(ctx context.Context, origin, dest orb.Point, departure time.Time, returnPath bool) (Leg, error) {
	originStop := s.nearestStop(origin)
	destStop := s.nearestStop(dest)
	if originStop == nil || destStop == nil {
		return s.fallback.Query(ctx, origin, dest, departure, returnPath)
	}

	trip, depTime, arrTime, ok := s.earliestItinerary(originStop, destStop, departure)
	if !ok {
		return s.fallback.Query(ctx, origin, dest, departure, returnPath)
	}

	leg := Leg{
		DistanceKm: orbgeo.DistanceHaversine(origin, dest) / 1000,
		TimeMin:    arrTime.Sub(depTime).Minutes(),
	}
	if returnPath {
		leg.PathLats = []float64{origin[1], dest[1]}
		leg.PathLons = []float64{origin[0], dest[0]}
	}
	_ = trip
	return leg, nil
}

func (s *Static) nearestStop(p orb.Point) *gtfs.Stop {
	var best *gtfs.Stop
	bestDist := 0.0
	for i := range s.feed.Stops {
		st := &s.feed.Stops[i]
		if st.Latitude == nil || st.Longitude == nil {
			continue
		}
		d := orbgeo.DistanceHaversine(p, orb.Point{*st.Longitude, *st.Latitude})
		if best == nil || d < bestDist {
			best, bestDist = st, d
		}
	}
	return best
}

// earliestItinerary scans scheduled trips in feed order and returns the
// first one that leaves originStop at or after `departure`'s time of day
// and visits destStop later in its stop sequence; a later trip in the
// feed that departs sooner is not looked for. A full GTFS router would build a transfer
// graph; OMOD only needs a single representative trip time per spec
// §4.11 ("Trip time & distance come from the chosen mode's router"),
// so the first direct match is used.
func (s *Static) earliestItinerary(originStop, destStop *gtfs.Stop, departure time.Time) (*gtfs.ScheduledTrip, time.Time, time.Time, bool) {
	depSeconds := departure.Hour()*3600 + departure.Minute()*60 + departure.Second()

	for i := range s.feed.Trips {
		trip := &s.feed.Trips[i]
		var depIdx, arrIdx = -1, -1
		for si, st := range trip.StopTimes {
			if st.Stop == nil {
				continue
			}
			if st.Stop.Id == originStop.Id && depIdx == -1 {
				depIdx = si
			}
			if st.Stop.Id == destStop.Id && depIdx != -1 {
				arrIdx = si
				break
			}
		}
		if depIdx == -1 || arrIdx == -1 {
			continue
		}
		depTime := trip.StopTimes[depIdx].DepartureTime
		arrTime := trip.StopTimes[arrIdx].ArrivalTime
		if int(depTime.Seconds()) < depSeconds {
			continue
		}
		base := time.Date(departure.Year(), departure.Month(), departure.Day(), 0, 0, 0, 0, departure.Location())
		return trip, base.Add(depTime), base.Add(arrTime), true
	}
	return nil, time.Time{}, time.Time{}, false
}
