package agent

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/L-Strobel/omod-sub001/internal/model"
)

// LoadStrata reads the CLI's --population_file (a JSON array of
// PopulationStratum). If path is empty, a single default stratum
// covering the whole population is used.
func LoadStrata(path string) ([]model.PopulationStratum, error) {
	if path == "" {
		return defaultStrata(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: reading population file %q: %w", path, err)
	}
	var strata []model.PopulationStratum
	if err := json.Unmarshal(data, &strata); err != nil {
		return nil, fmt.Errorf("agent: parsing population file %q: %w", path, err)
	}
	if err := validateStrata(strata); err != nil {
		return nil, err
	}
	return strata, nil
}

// validateStrata enforces §3's invariant: stratum shares sum to 1, and
// within each stratum every categorical distribution sums to 1.
func validateStrata(strata []model.PopulationStratum) error {
	const tol = 1e-6
	var totalShare float64
	for _, s := range strata {
		totalShare += s.Share

		var ageSum float64
		for _, b := range s.AgeBins {
			ageSum += b.Share
		}
		ageSum += s.AgeUndefinedShare
		if diff := ageSum - 1.0; diff > tol || diff < -tol {
			return fmt.Errorf("agent: stratum %q age distribution sums to %v, want 1", s.HomogeneousGroup, ageSum)
		}

		var sexSum float64
		for _, v := range s.SexShare {
			sexSum += v
		}
		if diff := sexSum - 1.0; diff > tol || diff < -tol {
			return fmt.Errorf("agent: stratum %q sex distribution sums to %v, want 1", s.HomogeneousGroup, sexSum)
		}
	}
	if diff := totalShare - 1.0; diff > tol || diff < -tol {
		return fmt.Errorf("agent: stratum shares sum to %v, want 1", totalShare)
	}
	return nil
}

func defaultStrata() []model.PopulationStratum {
	return []model.PopulationStratum{
		{
			HomogeneousGroup: "worker",
			MobilityGroup:    "mobile",
			Share:            0.6,
			AgeBins:          []model.AgeBin{{Upper: 65, Share: 1.0}},
			CarOwnershipProb: 0.75,
			SexShare:         map[string]float64{"male": 0.5, "female": 0.5},
		},
		{
			HomogeneousGroup: "pupil",
			MobilityGroup:    "mobile",
			Share:            0.15,
			AgeBins:          []model.AgeBin{{Upper: 18, Share: 1.0}},
			CarOwnershipProb: 0.0,
			SexShare:         map[string]float64{"male": 0.5, "female": 0.5},
		},
		{
			HomogeneousGroup: "retiree",
			MobilityGroup:    "less_mobile",
			Share:            0.25,
			AgeBins:          []model.AgeBin{{Upper: 100, Share: 1.0}},
			CarOwnershipProb: 0.4,
			SexShare:         map[string]float64{"male": 0.48, "female": 0.52},
		},
	}
}
