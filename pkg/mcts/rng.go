package mcts

import (
	"math"
	"math/rand"
)

// Dirichlet sampling for root noise. The player owns a single generator,
// seeded at construction; no package-global entropy is used during search.

// dirichlet fills out with a sample from Dir(alpha, ..., alpha).
func dirichlet(rnd *rand.Rand, alpha float64, out []float32) {
	var sum float64
	samples := make([]float64, len(out))
	for i := range samples {
		samples[i] = gammaSample(rnd, alpha)
		sum += samples[i]
	}
	if sum <= 0 {
		// Degenerate draw; fall back to uniform.
		for i := range out {
			out[i] = 1 / float32(len(out))
		}
		return
	}
	for i := range out {
		out[i] = float32(samples[i] / sum)
	}
}

// gammaSample draws from Gamma(alpha, 1) using Marsaglia-Tsang, with the
// usual boosting step for alpha < 1.
func gammaSample(rnd *rand.Rand, alpha float64) float64 {
	if alpha < 1 {
		u := rnd.Float64()
		for u == 0 {
			u = rnd.Float64()
		}
		return gammaSample(rnd, alpha+1) * math.Pow(u, 1/alpha)
	}
	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		x := rnd.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rnd.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
