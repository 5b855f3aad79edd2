package destchoice

import "github.com/L-Strobel/omod-sub001/internal/model"

// zonePair identifies an (origin zone, destination zone) k-factor entry.
// An empty OriginZone means "origin calibration" (§4.7 step 1): the
// factor applies regardless of which zone the traveler actually started
// in, keyed only by destination zone.
type zonePair struct {
	Activity model.ActivityType
	Origin   string // "" = wildcard (origin calibration)
	Dest     string
}

// KFactorTable holds calibrated multiplicative corrections produced by
// the OD calibrator (C7). The zero value is an empty table: every
// lookup returns 1.0, i.e. no correction, matching spec §4.6's "kFactor
// = 1.0 unless an OD matrix has been calibrated".
type KFactorTable struct {
	factors map[zonePair]float64
}

// NewKFactorTable builds a table; nil/empty entries are fine.
func NewKFactorTable() *KFactorTable {
	return &KFactorTable{factors: make(map[zonePair]float64)}
}

// Set records a calibrated factor. originZone == "" records an origin
// (HOME-share) calibration entry.
func (k *KFactorTable) Set(activity model.ActivityType, originZone, destZone string, factor float64) {
	k.factors[zonePair{activity, originZone, destZone}] = factor
}

// Lookup returns the calibrated factor for (activity, originZone,
// destZone), falling back to an origin-only entry, then to 1.0.
func (k *KFactorTable) Lookup(activity model.ActivityType, originZone, destZone string) float64 {
	if k == nil || k.factors == nil {
		return 1.0
	}
	if f, ok := k.factors[zonePair{activity, originZone, destZone}]; ok {
		return f
	}
	if f, ok := k.factors[zonePair{activity, "", destZone}]; ok {
		return f
	}
	return 1.0
}

func zoneName(z *model.ODZone) string {
	if z == nil {
		return ""
	}
	return z.Name
}
