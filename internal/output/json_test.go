package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

func TestWriteRoundTrips(t *testing.T) {
	home := model.NewBuilding(1, orb.Point{0, 0}, orb.Point{13.4, 52.5}, true)
	age := 30
	stay := 480.0
	dist := 5.2
	tm := 12.0

	agent := &model.MobiAgent{
		ID: 1,
		Features: model.SocioDemFeatureSet{
			HomogeneousGroup: "worker", MobilityGroup: "mobile", Age: &age, Sex: "male",
		},
		Home:      home,
		Work:      home,
		School:    home,
		CarAccess: true,
		Diaries: []model.Diary{
			{
				Day: 0, DayType: model.Monday,
				Activities: []model.Activity{
					{Type: model.Home, StayTime: &stay, Location: home},
					{Type: model.Work, Location: home},
				},
				Trips: []model.Trip{
					{Mode: model.CarDriver, DistanceKm: &dist, TimeMin: &tm},
				},
			},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	params := RunParameters{NAgents: 1, SharePop: 1, NDays: 1, StartWeekday: "MO"}

	if err := Write(path, params, []*model.MobiAgent{agent}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed reading output: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	agents, ok := doc["agents"].([]any)
	if !ok || len(agents) != 1 {
		t.Fatalf("expected one agent in output, got %v", doc["agents"])
	}
}

func TestFormatClockWrapsAtMidnight(t *testing.T) {
	cases := map[float64]string{
		0:       "00:00",
		90:      "01:30",
		1440:    "00:00",
		1440 + 5: "00:05",
		-30:     "23:30",
	}
	for in, want := range cases {
		if got := formatClock(in); got != want {
			t.Errorf("formatClock(%v) = %q, want %q", in, got, want)
		}
	}
}
