package activitydata

import (
	"testing"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

func TestDefaultStoreValidates(t *testing.T) {
	s := DefaultStore()
	if err := s.validate(); err != nil {
		t.Fatalf("embedded default store fails validation: %v", err)
	}
}

func TestLookupFallsBackToAllUndefined(t *testing.T) {
	s := DefaultStore()
	bucket, key := s.Lookup(model.Wednesday, "unknown-group", "unknown-mob", "unknown-age", model.Home)
	if bucket == nil {
		t.Fatal("expected a bucket, got nil")
	}
	if key.Weekday != nil || key.HomGroup != nil {
		t.Errorf("expected fully-undefined fallback key, got %+v", key)
	}
	if len(bucket.FromHome) == 0 {
		t.Fatal("all-undefined bucket must have chains from HOME")
	}
}

func TestLookupPrefersExactWeekdayGroupMatch(t *testing.T) {
	s := DefaultStore()
	bucket, key := s.Lookup(model.Monday, "pupil", "whatever-mob", "whatever-age", model.Home)
	if key.Weekday == nil || key.HomGroup == nil {
		t.Fatalf("expected the pupil/Monday bucket to match, got key %+v", key)
	}
	if bucket.SampleSize != 400 {
		t.Fatalf("expected the pupil bucket (sampleSize=400), got %d", bucket.SampleSize)
	}
}

func TestLookupSkipsLowSampleSizeBuckets(t *testing.T) {
	s := &Store{buckets: map[string]*Bucket{
		bucketKeyString(nil, nil, nil, nil): {
			SampleSize: 10000,
			FromHome:   []Chain{{Activities: []model.ActivityType{model.Home}, Weight: 1}},
			FromOther:  []Chain{{Activities: []model.ActivityType{model.Home}, Weight: 1}},
		},
	}}
	wd := model.Monday
	hom := "rare-group"
	s.buckets[bucketKeyString(&wd, &hom, nil, nil)] = &Bucket{
		SampleSize: 10, // below minSampleSize
		FromHome:   []Chain{{Activities: []model.ActivityType{model.Home, model.Work, model.Home}, Weight: 1}},
	}

	_, key := s.Lookup(model.Monday, "rare-group", "x", "y", model.Home)
	if key.HomGroup != nil {
		t.Fatalf("expected fallback past the low-sample-size bucket, got key %+v", key)
	}
}
