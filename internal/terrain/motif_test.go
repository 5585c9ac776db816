package terrain

import (
	"math"
	"testing"
)

func motifSamples() []map[string]float64 {
	return []map[string]float64{
		{"elevation": 2.0, "slope": 0.30, "curvature": 0.10},
		{"elevation": 2.2, "slope": 0.34, "curvature": 0.12},
		{"elevation": 1.8, "slope": 0.28, "curvature": 0.09},
	}
}

func TestMotifScoreEmpty(t *testing.T) {
	m := NewMotif(0)
	if got := m.Score(map[string]float64{"elevation": 2.0}); got != 0.5 {
		t.Errorf("Score on empty motif = %f, want 0.5", got)
	}
}

func TestMotifScoreNoOverlap(t *testing.T) {
	m := NewMotif(0)
	m.Fit(motifSamples())
	if got := m.Score(map[string]float64{"aspect": 1.0}); got != 0 {
		t.Errorf("Score with no shared features = %f, want 0", got)
	}
}

func TestMotifScoreOnMean(t *testing.T) {
	m := NewMotif(0)
	m.Fit(motifSamples())

	// A candidate sitting exactly on the training means scores 1.
	on := m.Score(map[string]float64{
		"elevation": m.stats["elevation"].Mean,
		"slope":     m.stats["slope"].Mean,
		"curvature": m.stats["curvature"].Mean,
	})
	if math.Abs(on-1) > 1e-9 {
		t.Errorf("Score on training means = %f, want 1", on)
	}

	// Moving away from the means lowers the score.
	off := m.Score(map[string]float64{"elevation": 5.0, "slope": 2.0, "curvature": 3.0})
	if off >= on {
		t.Errorf("off-mean score %f should be below on-mean score %f", off, on)
	}
	if off < 0 || off > 1 {
		t.Errorf("Score = %f, want within [0, 1]", off)
	}
}

func TestMotifScoreIgnoresNonFinite(t *testing.T) {
	m := NewMotif(0)
	m.Fit(motifSamples())

	clean := m.Score(map[string]float64{"elevation": 2.0})
	dirty := m.Score(map[string]float64{"elevation": 2.0, "slope": math.NaN(), "curvature": math.Inf(1)})
	if clean != dirty {
		t.Errorf("non-finite features changed the score: %f != %f", dirty, clean)
	}
}

func TestMotifConstantFeature(t *testing.T) {
	m := NewMotif(0)
	m.Fit([]map[string]float64{
		{"elevation": 3.0},
		{"elevation": 3.0},
		{"elevation": 3.0},
	})

	// Zero variance is floored at epsilon so z-scores stay finite.
	fs := m.Stats()["elevation"]
	if fs.StdDev != DefaultMotifEpsilon {
		t.Errorf("StdDev = %g, want epsilon floor %g", fs.StdDev, DefaultMotifEpsilon)
	}
	if got := m.Score(map[string]float64{"elevation": 3.0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("Score on constant feature value = %f, want 1", got)
	}
	got := m.Score(map[string]float64{"elevation": 3.5})
	if math.IsNaN(got) || got > 1e-6 {
		t.Errorf("Score off a zero-variance feature = %g, want near 0 and finite", got)
	}
}

func TestMotifRefine(t *testing.T) {
	m := NewMotif(0)
	m.Fit(motifSamples())
	if m.SampleCount() != 3 {
		t.Fatalf("SampleCount = %d, want 3", m.SampleCount())
	}
	before := m.Stats()["elevation"]

	m.Refine([]map[string]float64{{"elevation": 10.0}})
	if m.SampleCount() != 4 {
		t.Fatalf("SampleCount after Refine = %d, want 4", m.SampleCount())
	}
	after := m.Stats()["elevation"]
	if after.Count != 4 {
		t.Errorf("Count = %d, want 4", after.Count)
	}
	if after.Mean <= before.Mean {
		t.Errorf("Mean after refining with a high sample = %f, want above %f", after.Mean, before.Mean)
	}
	if after.Max != 10.0 {
		t.Errorf("Max = %f, want 10.0", after.Max)
	}
}

func TestMotifFitReplaces(t *testing.T) {
	m := NewMotif(0)
	m.Fit(motifSamples())
	m.Fit([]map[string]float64{{"elevation": 7.0}})
	if m.SampleCount() != 1 {
		t.Errorf("SampleCount after second Fit = %d, want 1", m.SampleCount())
	}
	if got := m.Stats()["elevation"].Mean; got != 7.0 {
		t.Errorf("Mean = %f, want 7.0", got)
	}
}
