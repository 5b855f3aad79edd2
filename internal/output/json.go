// Package output serializes a simulated population to OMOD's JSON
// output format, per spec §6. XML (MATSim) and SQLite outputs are
// named in the CLI surface but not implemented; config.Validate rejects
// their extensions before a run ever reaches this package.
package output

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

// RunParameters mirrors the subset of CLI configuration the output
// schema records for provenance.
type RunParameters struct {
	NAgents            int     `json:"nAgents"`
	SharePop           float64 `json:"sharePop"`
	NDays              int     `json:"nDays"`
	StartWeekday       string  `json:"startWeekday"`
	RoutingMode        string  `json:"routingMode"`
	GridPrecision      float64 `json:"gridPrecision"`
	Buffer             float64 `json:"buffer"`
	Seed               int64   `json:"seed"`
	PopulateBufferArea bool    `json:"populateBufferArea"`
	ModeChoice         string  `json:"modeChoice"`
}

type document struct {
	RunParameters RunParameters  `json:"runParameters"`
	Agents        []agentJSON    `json:"agents"`
}

type agentJSON struct {
	ID               int64       `json:"id"`
	HomogeneousGroup string      `json:"homogenousGroup"`
	MobilityGroup    string      `json:"mobilityGroup"`
	Age              *int        `json:"age"`
	Sex              string      `json:"sex"`
	CarAccess        bool        `json:"carAccess"`
	MobilityDemand   []diaryJSON `json:"mobilityDemand"`
}

type diaryJSON struct {
	Day     int    `json:"day"`
	DayType string `json:"dayType"`
	Plan    []any  `json:"plan"`
}

type activityJSON struct {
	Type            string   `json:"type"`
	LegID           int      `json:"legID"`
	ActivityType    string   `json:"activityType"`
	StartTime       string   `json:"startTime"`
	StayTimeMinute  *float64 `json:"stayTimeMinute,omitempty"`
	Lat             float64  `json:"lat"`
	Lon             float64  `json:"lon"`
	DummyLoc        bool     `json:"dummyLoc"`
	InFocusArea     bool     `json:"inFocusArea"`
}

type tripJSON struct {
	Type              string    `json:"type"`
	LegID             int       `json:"legID"`
	Mode              string    `json:"mode"`
	StartTime         string    `json:"startTime"`
	DistanceKilometer *float64  `json:"distanceKilometer,omitempty"`
	TimeMinute        *float64  `json:"timeMinute,omitempty"`
	Lats              []float64 `json:"lats,omitempty"`
	Lons              []float64 `json:"lons,omitempty"`
}

// Write serializes agents to path as JSON, per spec §6's schema.
func Write(path string, params RunParameters, agents []*model.MobiAgent) error {
	doc := document{RunParameters: params}
	for _, a := range agents {
		doc.Agents = append(doc.Agents, toAgentJSON(a))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("output: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("output: writing %q: %w", path, err)
	}
	return nil
}

func toAgentJSON(a *model.MobiAgent) agentJSON {
	aj := agentJSON{
		ID:               a.ID,
		HomogeneousGroup: a.Features.HomogeneousGroup,
		MobilityGroup:    a.Features.MobilityGroup,
		Age:              a.Features.Age,
		Sex:              a.Features.Sex,
		CarAccess:        a.CarAccess,
	}
	for _, d := range a.Diaries {
		aj.MobilityDemand = append(aj.MobilityDemand, toDiaryJSON(d))
	}
	return aj
}

func toDiaryJSON(d model.Diary) diaryJSON {
	dj := diaryJSON{Day: d.Day, DayType: d.DayType.String()}
	clockMin := 0.0
	legID := 0
	for i, act := range d.Activities {
		ll := act.Location.LatLon()
		dj.Plan = append(dj.Plan, activityJSON{
			Type:           "Activity",
			LegID:          legID,
			ActivityType:   act.Type.String(),
			StartTime:      formatClock(clockMin),
			StayTimeMinute: act.StayTime,
			Lat:            ll[1],
			Lon:            ll[0],
			DummyLoc:       !act.Location.IsReal(),
			InFocusArea:    act.Location.InFocusArea(),
		})
		legID++
		if act.StayTime != nil {
			clockMin += *act.StayTime
		}
		if i < len(d.Trips) {
			trip := d.Trips[i]
			dj.Plan = append(dj.Plan, tripJSON{
				Type:              "Trip",
				LegID:             legID,
				Mode:              trip.Mode.String(),
				StartTime:         formatClock(clockMin),
				DistanceKilometer: trip.DistanceKm,
				TimeMinute:        trip.TimeMin,
				Lats:              trip.PathLats,
				Lons:              trip.PathLons,
			})
			legID++
			if trip.TimeMin != nil {
				clockMin += *trip.TimeMin
			}
		}
	}
	return dj
}

func formatClock(minutesSinceMidnight float64) string {
	total := int(minutesSinceMidnight) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
