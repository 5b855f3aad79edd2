package activitydata

import (
	"math/rand/v2"

	"github.com/L-Strobel/omod-sub001/internal/model"
	"github.com/L-Strobel/omod-sub001/internal/rng"
)

// SampleChain draws one activity chain from a bucket's distribution for
// the given origin activity.
func SampleChain(b *Bucket, from model.ActivityType, r *rand.Rand) (Chain, error) {
	chains := b.chainsFor(from)
	weights := make([]float64, len(chains))
	for i, c := range chains {
		weights[i] = c.Weight
	}
	cum, err := rng.BuildCumulative(weights)
	if err != nil {
		// Degenerate: every chain in the bucket has weight 0. Fall back
		// to uniform, per §7.
		cum = rng.UniformCumulative(len(chains))
	}
	idx := rng.Sample(cum, r)
	return chains[idx], nil
}

// SampleDwellTimes draws one dwell-time vector (minutes) from a chain's
// Gaussian mixture, clipping negative draws to zero per §4.10. Returns
// nil if the chain carries no mixture (e.g. a single-activity "stay home
// all day" chain).
func SampleDwellTimes(c Chain, r *rand.Rand) []float64 {
	if c.DwellTimes == nil || len(c.DwellTimes.Weights) == 0 {
		return nil
	}
	gmm := c.DwellTimes
	cum, err := rng.BuildCumulative(gmm.Weights)
	if err != nil {
		cum = rng.UniformCumulative(len(gmm.Weights))
	}
	component := rng.Sample(cum, r)

	out := rng.SampleMVN(gmm.Means[component], gmm.Covariances[component], r)
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		}
	}
	return out
}
