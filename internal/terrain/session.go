package terrain

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banshee-data/terrain.report/internal/monitoring"
	"github.com/banshee-data/terrain.report/internal/units"
)

// GridProvider supplies the feature grid for a scan region. Implemented
// outside this package (the core never fabricates data); a fetch failure is
// fatal for the scan and is propagated unmodified.
type GridProvider interface {
	FetchGrid(ctx context.Context, lat, lon, radiusM float64) (*FeatureGrid, error)
}

// FeatureExtractor produces the per-site feature dictionary the motif
// scores against. Supplied alongside the grid provider.
type FeatureExtractor func(lat, lon float64, grid *FeatureGrid) (map[string]float64, error)

// Params collects every tunable of the orchestrated pipeline.
type Params struct {
	KernelWindow int
	Coherence    CoherenceParams
	Extract      ExtractParams
	Validation   ValidationParams

	// MotifEpsilon floors per-feature standard deviations.
	MotifEpsilon float64
	// MotifThreshold drops algorithmic candidates scoring below it.
	MotifThreshold float64
	// RefineConfidence is the minimum candidate confidence for a detection
	// to be folded back into the motif during refinement.
	RefineConfidence float64
	// DedupRadiusM drops algorithmic candidates within this planar distance
	// of a promoted training candidate.
	DedupRadiusM float64
	// MaxSearchRadiusM caps the provider fetch radius derived from the
	// region extent.
	MaxSearchRadiusM float64
	// PromotedConfidence is the confidence assigned to training sites found
	// in bounds and promoted directly to candidates.
	PromotedConfidence float64
	// RefineMotif enables folding new high-confidence detections back into
	// the motif at the end of a scan.
	RefineMotif bool
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		KernelWindow:       DefaultKernelWindow,
		Coherence:          DefaultCoherenceParams(),
		Extract:            DefaultExtractParams(),
		Validation:         DefaultValidationParams(),
		MotifEpsilon:       DefaultMotifEpsilon,
		MotifThreshold:     0.30,
		RefineConfidence:   0.80,
		DedupRadiusM:       50,
		MaxSearchRadiusM:   3000,
		PromotedConfidence: 0.95,
		RefineMotif:        true,
	}
}

// Session owns the learned state of one scan: the kernel, the motif and the
// most recent coherence map. Construct one per scan, or pass one explicitly
// for reuse; a Session must not be used by concurrent scans.
type Session struct {
	provider  GridProvider
	extractor FeatureExtractor
	params    Params

	kernel   *Kernel
	motif    *Motif
	lastScan *CoherenceMap
	lastGrid *FeatureGrid
}

// NewSession creates a session. extractor may be nil, in which case motif
// scoring is skipped (candidates keep their coherence ordering).
func NewSession(p GridProvider, extractor FeatureExtractor, params Params) *Session {
	return &Session{
		provider:  p,
		extractor: extractor,
		params:    params,
		motif:     NewMotif(params.MotifEpsilon),
	}
}

// Kernel returns the kernel learned by the most recent scan, or nil.
func (s *Session) Kernel() *Kernel { return s.kernel }

// Motif returns the session's motif.
func (s *Session) Motif() *Motif { return s.motif }

// CoherenceSnapshot returns the coherence map of the most recent scan, or
// nil. The map is owned by the session; callers must not modify it.
func (s *Session) CoherenceSnapshot() *CoherenceMap { return s.lastScan }

// LastGrid returns the feature grid of the most recent scan, or nil.
func (s *Session) LastGrid() *FeatureGrid { return s.lastGrid }

// SearchRadiusM derives the provider fetch radius from the region extent,
// capped at MaxSearchRadiusM.
func (s *Session) SearchRadiusM(bounds Bounds) float64 {
	latM := bounds.LatExtent() * units.MetersPerDegreeLat
	midLat, _ := bounds.Center()
	lonM := bounds.LonExtent() * units.MetersPerDegreeLon(midLat)
	r := math.Max(latM, lonM) / 2
	if r > s.params.MaxSearchRadiusM {
		r = s.params.MaxSearchRadiusM
	}
	return r
}

// RunScan executes the full detection pipeline for one region. It returns a
// DetectionResult (possibly empty) for every input except a provider
// failure, which is propagated unmodified. Degenerate conditions (flat
// region, no coherence, no usable training sites) produce an empty result
// with NoCandidates set, never an error.
func (s *Session) RunScan(ctx context.Context, bounds Bounds, training, validation []Site) (*DetectionResult, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("invalid scan bounds %+v", bounds)
	}
	start := time.Now()

	centerLat, centerLon := bounds.Center()
	grid, err := s.provider.FetchGrid(ctx, centerLat, centerLon, s.SearchRadiusM(bounds))
	if err != nil {
		// Fatal: never substitute synthetic data for a missing region.
		return nil, err
	}
	s.lastGrid = grid

	// Training sites inside the region are promoted directly to
	// high-confidence candidates.
	promoted := s.promoteTrainingSites(grid, bounds, training)

	var algorithmic []Candidate
	if len(training) > 0 {
		kernel, err := ConstructKernel(grid, training, s.params.KernelWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to construct kernel: %w", err)
		}
		s.kernel = kernel

		cp := s.params.Coherence
		cp.Window = s.params.KernelWindow
		s.lastScan = ScanCoherence(grid, kernel, cp)
		algorithmic = ExtractCandidates(s.lastScan, bounds, grid.ResolutionM, s.params.Extract)
	} else {
		monitoring.Logf("scan: no training sites supplied, skipping kernel pipeline")
	}

	algorithmic = s.scoreCandidates(algorithmic, grid, training)
	algorithmic = dedupAgainst(algorithmic, promoted, s.params.DedupRadiusM)
	algorithmic = s.dropBelowMotifThreshold(algorithmic)

	candidates := append(append([]Candidate{}, promoted...), algorithmic...)

	var summary *ValidationSummary
	if len(validation) > 0 && s.kernel != nil {
		cp := s.params.Coherence
		cp.Window = s.params.KernelWindow
		vp := s.params.Validation
		vp.Window = s.params.KernelWindow
		validated, vs := ValidateSites(validation, grid, s.kernel, bounds, cp, vp)
		candidates = append(candidates, validated...)
		summary = &vs
	}

	if s.params.RefineMotif {
		s.refineFromDetections(algorithmic, grid)
	}

	elapsed := time.Since(start)
	return &DetectionResult{
		Bounds:       bounds,
		Candidates:   candidates,
		AreaKm2:      units.AreaKm2(bounds.LatMin, bounds.LonMin, bounds.LatMax, bounds.LonMax),
		ResolutionM:  grid.ResolutionM,
		Elapsed:      elapsed,
		ElapsedMS:    elapsed.Milliseconds(),
		NoCandidates: len(candidates) == 0,
		Validation:   summary,
	}, nil
}

// promoteTrainingSites emits a high-confidence candidate for every training
// site strictly inside the scan bounds.
func (s *Session) promoteTrainingSites(grid *FeatureGrid, bounds Bounds, training []Site) []Candidate {
	promoted := []Candidate{}
	for _, site := range training {
		if !bounds.Contains(site.Lat, site.Lon) {
			continue
		}
		c := Candidate{
			Lat:                site.Lat,
			Lon:                site.Lon,
			Psi0:               1,
			Phi0:               1,
			Coherence:          1,
			Confidence:         s.params.PromotedConfidence,
			Name:               site.Name,
			Source:             SourceTraining,
			IsTrainingWindmill: true,
		}
		if y, x, ok := grid.GridCoords(site.Lat, site.Lon); ok {
			c.ElevationAnomalyM = 2 * grid.At(y, x, BandElevationAnomaly)
		}
		promoted = append(promoted, c)
	}
	return promoted
}

// scoreCandidates fits the motif from the training sites (when not yet
// fitted), attaches a motif score to every candidate and sorts by score
// descending. A candidate whose feature extraction fails is skipped with a
// warning; the batch continues.
func (s *Session) scoreCandidates(candidates []Candidate, grid *FeatureGrid, training []Site) []Candidate {
	if s.extractor == nil || len(candidates) == 0 {
		return candidates
	}

	if s.motif.SampleCount() == 0 && len(training) > 0 {
		samples := make([]map[string]float64, 0, len(training))
		for _, site := range training {
			feats, err := s.extractor(site.Lat, site.Lon, grid)
			if err != nil {
				monitoring.Logf("motif: feature extraction failed for training site %q: %v", site.Name, err)
				continue
			}
			samples = append(samples, feats)
		}
		if len(samples) > 0 {
			s.motif.Fit(samples)
		}
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		feats, err := s.extractor(c.Lat, c.Lon, grid)
		if err != nil {
			monitoring.Logf("motif: feature extraction failed for candidate at (%.5f, %.5f), skipping: %v", c.Lat, c.Lon, err)
			continue
		}
		c.MotifScore = float64Ptr(s.motif.Score(feats))
		scored = append(scored, c)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].MotifScore > *scored[j].MotifScore
	})
	return scored
}

// dropBelowMotifThreshold filters scored candidates under the motif floor.
// Unscored candidates (no extractor configured) pass through.
func (s *Session) dropBelowMotifThreshold(candidates []Candidate) []Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if c.MotifScore != nil && *c.MotifScore < s.params.MotifThreshold {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedupAgainst removes algorithmic candidates within radiusM of any
// promoted training candidate. The distance deliberately uses bare
// degree-to-metre factors without the cos(lat) longitude correction that the
// area computation includes; both approximations are preserved as found, and
// the operation is idempotent.
func dedupAgainst(candidates, promoted []Candidate, radiusM float64) []Candidate {
	if len(promoted) == 0 || radiusM <= 0 {
		return candidates
	}
	out := candidates[:0]
	for _, c := range candidates {
		keep := true
		for _, p := range promoted {
			dy := (c.Lat - p.Lat) * units.MetersPerDegreeLat
			dx := (c.Lon - p.Lon) * units.MetersPerDegreeLat
			if math.Hypot(dx, dy) < radiusM {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

// refineFromDetections folds newly found high-confidence detections back
// into the motif. The refinement is a full recompute over the accumulated
// sample set.
func (s *Session) refineFromDetections(candidates []Candidate, grid *FeatureGrid) {
	if s.extractor == nil {
		return
	}
	samples := make([]map[string]float64, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence < s.params.RefineConfidence {
			continue
		}
		feats, err := s.extractor(c.Lat, c.Lon, grid)
		if err != nil {
			monitoring.Logf("motif: refinement extraction failed at (%.5f, %.5f): %v", c.Lat, c.Lon, err)
			continue
		}
		samples = append(samples, feats)
	}
	if len(samples) > 0 {
		s.motif.Refine(samples)
		monitoring.Logf("motif: refined with %d new samples (total %d)", len(samples), s.motif.SampleCount())
	}
}
