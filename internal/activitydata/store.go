// Package activitydata is the activity data store (C8): weekday x
// demographic-group indexed conditional distributions over activity
// chains and dwell times, with the fallback hierarchy spec §4.8
// requires. The store is immutable after construction and is safe to
// share across the simulation loop's worker pool.
package activitydata

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

// minSampleSize is the §4.8 threshold below which a bucket is treated as
// unreliable and the lookup falls back to a coarser key.
const minSampleSize = 280

// Chain is one possible activity sequence with its survey weight and,
// if present, a Gaussian-mixture model over dwell times (dimension =
// len(Activities)-1, since the last activity's dwell time is always
// open-ended).
type Chain struct {
	Activities []model.ActivityType `json:"activities"`
	Weight     float64              `json:"weight"`
	DwellTimes *GaussianMixture     `json:"dwellTimes,omitempty"`
}

// GaussianMixture is a weighted mixture of multivariate normals over
// dwell-time vectors.
type GaussianMixture struct {
	Weights      []float64     `json:"weights"`
	Means        [][]float64   `json:"means"`
	Covariances  [][][]float64 `json:"covariances"`
}

// Bucket holds every chain distribution observed for one
// (weekday, homGroup, mobGroup, ageGroup) key, split by the activity the
// day's chain starts from.
type Bucket struct {
	SampleSize int                             `json:"sampleSize"`
	FromHome   []Chain                         `json:"fromHome"`
	FromOther  []Chain                         `json:"fromOther"`
}

func (b *Bucket) chainsFor(from model.ActivityType) []Chain {
	if from == model.Home {
		return b.FromHome
	}
	return b.FromOther
}

// Key identifies a bucket. A nil pointer field means "wildcard" / folded
// into "undefined" per the §4.8 fallback hierarchy.
type Key struct {
	Weekday  *model.Weekday
	HomGroup *string
	MobGroup *string
	AgeGroup *string
}

// Store is the immutable, queryable set of buckets.
type Store struct {
	buckets map[string]*Bucket
}

func bucketKeyString(wd *model.Weekday, hom, mob, age *string) string {
	wdStr, homStr, mobStr, ageStr := "*", "*", "*", "*"
	if wd != nil {
		wdStr = wd.String()
	}
	if hom != nil {
		homStr = *hom
	}
	if mob != nil {
		mobStr = *mob
	}
	if age != nil {
		ageStr = *age
	}
	return fmt.Sprintf("%s|%s|%s|%s", wdStr, homStr, mobStr, ageStr)
}

// rawBucket is one entry of the on-disk JSON shape, a flat list of
// buckets each carrying their own (possibly wildcard) key fields.
type rawBucket struct {
	Weekday    *string `json:"weekday,omitempty"`
	HomGroup   *string `json:"homogeneousGroup,omitempty"`
	MobGroup   *string `json:"mobilityGroup,omitempty"`
	AgeGroup   *string `json:"ageGroup,omitempty"`
	SampleSize int     `json:"sampleSize"`
	FromHome   []Chain `json:"fromHome"`
	FromOther  []Chain `json:"fromOther"`
}

// Load reads a population/activity-group file (the CLI's
// --activity_group_file) and builds a Store. If path is empty, the
// embedded default data set is used.
func Load(path string) (*Store, error) {
	if path == "" {
		return DefaultStore(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("activitydata: reading %q: %w", path, err)
	}
	var raw []rawBucket
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("activitydata: parsing %q: %w", path, err)
	}
	store := &Store{buckets: make(map[string]*Bucket, len(raw))}
	for _, rb := range raw {
		var wd *model.Weekday
		if rb.Weekday != nil {
			if parsed, ok := model.ParseWeekday(*rb.Weekday); ok {
				wd = &parsed
			}
		}
		key := bucketKeyString(wd, rb.HomGroup, rb.MobGroup, rb.AgeGroup)
		store.buckets[key] = &Bucket{
			SampleSize: rb.SampleSize,
			FromHome:   rb.FromHome,
			FromOther:  rb.FromOther,
		}
	}
	if err := store.validate(); err != nil {
		return nil, err
	}
	return store, nil
}

// validate enforces the §4.8/§7 data-integrity requirement: the
// all-undefined bucket must exist and must cover both "from HOME" and
// "from OTHER" with at least one chain each.
func (s *Store) validate() error {
	root := s.buckets[bucketKeyString(nil, nil, nil, nil)]
	if root == nil {
		return fmt.Errorf("activitydata: missing the all-undefined fallback bucket")
	}
	if len(root.FromHome) == 0 || len(root.FromOther) == 0 {
		return fmt.Errorf("activitydata: all-undefined bucket must cover both HOME and OTHER origins")
	}
	return nil
}

// Lookup resolves a (weekday, hom, mob, age, from) query against the
// fallback hierarchy of §4.8: age, then mobility group, then homogeneous
// group, then weekday are progressively set to "undefined" until a
// bucket is found whose sample size is at least minSampleSize and which
// has at least one chain for `from`. If no attempt qualifies, the
// all-undefined bucket is returned anyway, even when its sample size is
// below minSampleSize; validate guarantees that bucket exists and has
// chains for both origins in a store built by Load.
func (s *Store) Lookup(wd model.Weekday, hom, mob string, age string, from model.ActivityType) (*Bucket, Key) {
	homP, mobP, ageP := &hom, &mob, &age
	wdP := &wd

	// Fallback order per §4.8: age -> mobility -> homogeneous -> weekday.
	attempts := []struct {
		wd  *model.Weekday
		hom *string
		mob *string
		age *string
	}{
		{wdP, homP, mobP, ageP},
		{wdP, homP, mobP, nil},
		{wdP, homP, nil, nil},
		{wdP, nil, nil, nil},
		{nil, nil, nil, nil},
	}

	for _, a := range attempts {
		b := s.buckets[bucketKeyString(a.wd, a.hom, a.mob, a.age)]
		if b == nil {
			continue
		}
		if b.SampleSize < minSampleSize {
			continue
		}
		if len(b.chainsFor(from)) == 0 {
			continue
		}
		return b, Key{a.wd, a.hom, a.mob, a.age}
	}

	// The all-undefined bucket is mandatory and validated at load time,
	// so if we reach here its sample size must have been < threshold —
	// still better than nothing (§7: abort only if it's entirely missing
	// or has no chains at all for this origin).
	root := s.buckets[bucketKeyString(nil, nil, nil, nil)]
	return root, Key{}
}
