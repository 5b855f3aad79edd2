package activitydata

import "github.com/L-Strobel/omod-sub001/internal/model"

// DefaultStore returns the embedded baseline distributions that ship
// with OMOD when no --activity_group_file is given. It only covers the
// all-undefined bucket plus one Monday "pupil" bucket; anything else
// falls back to all-undefined per the §4.8 hierarchy. Real
// deployments are expected to supply a calibrated survey-derived file.
func DefaultStore() *Store {
	s := &Store{buckets: make(map[string]*Bucket)}

	weekday := func(w model.Weekday) *model.Weekday { return &w }
	str := func(v string) *string { return &v }

	s.buckets[bucketKeyString(nil, nil, nil, nil)] = &Bucket{
		SampleSize: 10000,
		FromHome: []Chain{
			{
				Activities: []model.ActivityType{model.Home, model.Work, model.Home},
				Weight:     0.35,
				DwellTimes: &GaussianMixture{
					Weights: []float64{1.0},
					Means:   [][]float64{{510, 480}},
					Covariances: [][][]float64{{
						{3600, 0},
						{0, 3600},
					}},
				},
			},
			{
				Activities: []model.ActivityType{model.Home, model.Shopping, model.Home},
				Weight:     0.20,
				DwellTimes: &GaussianMixture{
					Weights: []float64{1.0},
					Means:   [][]float64{{45, 0}},
					Covariances: [][][]float64{{
						{400, 0},
						{0, 1},
					}},
				},
			},
			{
				Activities: []model.ActivityType{model.Home, model.Other, model.Home},
				Weight:     0.15,
				DwellTimes: &GaussianMixture{
					Weights: []float64{1.0},
					Means:   [][]float64{{90, 0}},
					Covariances: [][][]float64{{
						{900, 0},
						{0, 1},
					}},
				},
			},
			{
				Activities: []model.ActivityType{model.Home},
				Weight:     0.30,
			},
		},
		FromOther: []Chain{
			{
				Activities: []model.ActivityType{model.Other, model.Home},
				Weight:     0.7,
			},
			{
				Activities: []model.ActivityType{model.Other, model.Shopping, model.Home},
				Weight:     0.3,
				DwellTimes: &GaussianMixture{
					Weights: []float64{1.0},
					Means:   [][]float64{{30, 0}},
					Covariances: [][][]float64{{
						{225, 0},
						{0, 1},
					}},
				},
			},
		},
	}

	// A schoolchild-specific weekday bucket, to exercise the fallback
	// hierarchy beyond the root in tests and small demo runs.
	s.buckets[bucketKeyString(weekday(model.Monday), str("pupil"), nil, nil)] = &Bucket{
		SampleSize: 400,
		FromHome: []Chain{
			{
				Activities: []model.ActivityType{model.Home, model.School, model.Home},
				Weight:     1.0,
				DwellTimes: &GaussianMixture{
					Weights: []float64{1.0},
					Means:   [][]float64{{330, 150}},
					Covariances: [][][]float64{{
						{900, 0},
						{0, 900},
					}},
				},
			},
		},
		FromOther: []Chain{
			{Activities: []model.ActivityType{model.Other, model.Home}, Weight: 1.0},
		},
	}

	return s
}
