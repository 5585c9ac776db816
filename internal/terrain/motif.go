package terrain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MotifFeatureNames are the per-site features the motif summarises. The
// feature extractor supplied alongside the grid provider produces these keys.
var MotifFeatureNames = []string{
	"elevation",
	"height_variance",
	"curvature",
	"slope",
	"aspect",
	"elevation_anomaly",
	"normalized_height",
	"profile_curvature",
}

// DefaultMotifEpsilon is the floor applied to per-feature standard
// deviations so z-scores stay finite for constant features.
const DefaultMotifEpsilon = 1e-6

// FeatureStats is the statistical summary of one feature across the
// accumulated training samples.
type FeatureStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Motif holds the per-feature statistics learned from training site feature
// dictionaries, plus the backing sample set. Refinement appends to the
// sample set and recomputes everything; there is no incremental update path
// (the sample set stays small, and a full recompute is easier to argue
// correct).
type Motif struct {
	epsilon float64
	samples []map[string]float64
	stats   map[string]FeatureStats
}

// NewMotif returns an empty motif. An empty motif scores every candidate a
// neutral 0.5.
func NewMotif(epsilon float64) *Motif {
	if epsilon <= 0 {
		epsilon = DefaultMotifEpsilon
	}
	return &Motif{epsilon: epsilon}
}

// Fit replaces the backing sample set and recomputes the statistics.
func (m *Motif) Fit(samples []map[string]float64) {
	m.samples = append([]map[string]float64{}, samples...)
	m.recompute()
}

// Refine appends new samples to the backing set and recomputes from the full
// accumulated set. It returns a pointer to the same motif for chaining; the
// motif is owned by one session and must not be shared across scans.
func (m *Motif) Refine(samples []map[string]float64) *Motif {
	m.samples = append(m.samples, samples...)
	m.recompute()
	return m
}

// SampleCount returns the number of accumulated samples.
func (m *Motif) SampleCount() int { return len(m.samples) }

// Stats returns a copy of the per-feature statistics.
func (m *Motif) Stats() map[string]FeatureStats {
	out := make(map[string]FeatureStats, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

func (m *Motif) recompute() {
	m.stats = make(map[string]FeatureStats)
	if len(m.samples) == 0 {
		return
	}
	values := make(map[string][]float64)
	for _, sample := range m.samples {
		for name, v := range sample {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values[name] = append(values[name], v)
		}
	}
	for name, vs := range values {
		if len(vs) == 0 {
			continue
		}
		mean := stat.Mean(vs, nil)
		sd := 0.0
		if len(vs) > 1 {
			sd = stat.StdDev(vs, nil)
		}
		if sd < m.epsilon {
			sd = m.epsilon
		}
		lo, hi := vs[0], vs[0]
		for _, v := range vs {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		m.stats[name] = FeatureStats{Mean: mean, StdDev: sd, Min: lo, Max: hi, Count: len(vs)}
	}
}

// Score computes the motif similarity of a feature dictionary in [0, 1].
// Each shared feature contributes a Gaussian-decay similarity exp(−z²/2)
// weighted by 1/(1+σ) — stable, low-variance features count more — and the
// weighted similarities are combined via a weighted geometric mean. With no
// motif fitted the score is a neutral 0.5; with no overlapping features it
// is 0.
func (m *Motif) Score(features map[string]float64) float64 {
	if len(m.stats) == 0 {
		return 0.5
	}

	var logSum, weightSum float64
	matched := 0
	for name, fs := range m.stats {
		v, ok := features[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		z := (v - fs.Mean) / fs.StdDev
		sim := math.Exp(-z * z / 2)
		if sim < 1e-12 {
			sim = 1e-12
		}
		w := 1 / (1 + fs.StdDev)
		logSum += w * math.Log(sim)
		weightSum += w
		matched++
	}
	if matched == 0 || weightSum == 0 {
		return 0
	}
	score := math.Exp(logSum / weightSum)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
