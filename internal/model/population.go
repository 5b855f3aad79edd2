package model

// AgeBin is one bucket of a stratum's age distribution: agents with age
// <= Upper (in years) fall in this bin with probability Share.
type AgeBin struct {
	Upper int
	Share float64
}

// PopulationStratum is a demographic bucket sampled during agent
// construction (C9). Share is this stratum's fraction of the overall
// population; the internal distributions must each sum to 1.
type PopulationStratum struct {
	HomogeneousGroup string
	MobilityGroup    string

	Share float64

	AgeBins         []AgeBin
	AgeUndefinedShare float64

	CarOwnershipProb float64

	SexShare map[string]float64 // "male" / "female" / "undefined" -> share
}

// SocioDemFeatureSet is one sample drawn from a PopulationStratum.
type SocioDemFeatureSet struct {
	HomogeneousGroup string
	MobilityGroup    string
	Age              *int
	Sex              string
}

// MobiAgent is a synthetic person: its feature set, its three anchor
// locations (all assigned even if the agent's homogeneous group does not
// use them), and its per-day diaries.
type MobiAgent struct {
	ID int64

	Features   SocioDemFeatureSet
	Home       LocationOption
	Work       LocationOption
	School     LocationOption
	CarAccess  bool

	Diaries []Diary
}

// Diary is one day's activity plan for an agent.
type Diary struct {
	Day        int
	DayType    Weekday
	Activities []Activity
	Trips      []Trip
}

// Activity is one stop in a Diary. StayTime is nil for the final
// activity of a day ("until end of day").
type Activity struct {
	Type     ActivityType
	StayTime *float64 // minutes
	Location LocationOption
}

// Trip connects two consecutive Activities.
type Trip struct {
	Mode             Mode
	DistanceKm       *float64
	TimeMin          *float64
	PathLats         []float64
	PathLons         []float64
	DepartureMinutes float64 // minutes since midnight of Diary.Day, for transit lookups
}
