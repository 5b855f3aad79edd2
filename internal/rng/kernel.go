// Package rng is the stochastic kernel (C1): cumulative-distribution
// sampling and N-D Gaussian mixture sampling via Cholesky decomposition.
// It is stateless apart from the RNG a caller injects, and reentrant —
// safe to call from many goroutines as long as each goroutine owns its
// own *rand.Rand.
package rng

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateWeights is returned by BuildCumulative when every input
// weight is zero or the slice is empty. Per spec §7, callers must
// substitute a fallback (typically a uniform distribution over the
// candidate set) and log the condition; BuildCumulative itself never
// invents a fallback.
var ErrDegenerateWeights = errors.New("rng: all weights are zero or empty")

// BuildCumulative turns non-negative weights into a cumulative
// distribution (prefix sum normalized to [0,1]). If the weights sum to
// zero it still returns a degenerate (all-zero) distribution alongside
// ErrDegenerateWeights so the caller can decide how to recover.
func BuildCumulative(weights []float64) ([]float64, error) {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	if total <= 0 {
		return cum, ErrDegenerateWeights
	}
	for i := range cum {
		cum[i] /= total
	}
	return cum, nil
}

// Sample draws an index from a cumulative distribution built by
// BuildCumulative: the smallest i with cum[i] >= u, u ~ Uniform(0,1).
// A linear scan is used since candidate sets in OMOD (buildings in a
// cell, activity chains in a bucket) are small; nothing here precludes
// a caller from binary-searching a larger cum slice if needed.
func Sample(cum []float64, r *rand.Rand) int {
	if len(cum) == 0 {
		return 0
	}
	u := r.Float64()
	for i, c := range cum {
		if c >= u {
			return i
		}
	}
	return len(cum) - 1
}

// UniformCumulative returns a cumulative distribution spreading weight
// evenly across n candidates — the documented fallback for degenerate
// sampling.
func UniformCumulative(n int) []float64 {
	cum := make([]float64, n)
	for i := range cum {
		cum[i] = float64(i+1) / float64(n)
	}
	return cum
}

// NewAgentRNG derives a reproducible, splittable RNG for an agent from
// the run's master seed and the agent's id, per spec §5/§9: the same
// agent always gets the same stream regardless of how work is scheduled
// across goroutines.
func NewAgentRNG(masterSeed int64, agentID int64) *rand.Rand {
	// PCG takes two uint64 seed words; folding the agent id into the
	// second word gives every agent an independent, deterministic stream
	// while keeping the generator splittable as spec §9 asks for.
	return rand.New(rand.NewPCG(uint64(masterSeed), uint64(agentID)))
}

// SampleMVN draws one sample from a multivariate normal with the given
// mean and covariance. The covariance is symmetrized by averaging it
// with its transpose, which absorbs the numerical imprecision of
// upstream-fitted matrices; no symmetry check is made. If the Cholesky
// decomposition fails, it retries once with a small ridge added to the
// diagonal; if that still fails it falls back to independent
// per-dimension Gaussians using the diagonal variances (per §7).
func SampleMVN(mean []float64, covariance [][]float64, r *rand.Rand) []float64 {
	n := len(mean)
	if n == 0 {
		return nil
	}

	sym := symmetrize(covariance, n)

	chol, ok := tryCholesky(sym, n)
	if !ok {
		regularized := addRidge(sym, n, 1e-6)
		chol, ok = tryCholesky(regularized, n)
	}
	if !ok {
		return sampleIndependent(mean, sym, r)
	}

	z := make([]float64, n)
	for i := range z {
		z[i] = r.NormFloat64()
	}

	var L mat.TriDense
	chol.LTo(&L)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j <= i; j++ {
			sum += L.At(i, j) * z[j]
		}
		out[i] = mean[i] + sum
	}
	return out
}

func tryCholesky(sym *mat.SymDense, n int) (*mat.Cholesky, bool) {
	var chol mat.Cholesky
	ok := chol.Factorize(sym)
	if !ok {
		return nil, false
	}
	return &chol, true
}

// symmetrize averages a matrix with its transpose, tolerating the
// relative/absolute imprecision spec §4.1 documents in upstream
// covariance sources.
func symmetrize(cov [][]float64, n int) *mat.SymDense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := (cov[i][j] + cov[j][i]) / 2
			data[i*n+j] = v
		}
	}
	return mat.NewSymDense(n, data)
}

func addRidge(sym *mat.SymDense, n int, ridge float64) *mat.SymDense {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := sym.At(i, j)
			if i == j {
				v += ridge
			}
			data[i*n+j] = v
		}
	}
	return mat.NewSymDense(n, data)
}

func sampleIndependent(mean []float64, sym *mat.SymDense, r *rand.Rand) []float64 {
	n := len(mean)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		variance := sym.At(i, i)
		if variance < 0 {
			variance = 0
		}
		out[i] = mean[i] + r.NormFloat64()*math.Sqrt(variance)
	}
	return out
}
