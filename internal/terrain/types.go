package terrain

import "time"

// Site is a named geographic point. Training sites feed kernel construction
// and the motif; validation sites are withheld from learning and only
// exercised by the validation harness.
type Site struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Candidate source tags. Validation results are appended to the candidate
// list tagged distinctly so downstream consumers can separate them from
// algorithmic detections.
const (
	SourceScan       = "scan"
	SourceTraining   = "training"
	SourceValidation = "validation"
)

// Candidate is one detected (or promoted) site. A Candidate is never
// mutated after creation except to attach a motif score.
type Candidate struct {
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Psi0              float64 `json:"psi0"`
	Phi0              float64 `json:"phi0"`
	Coherence         float64 `json:"coherence"`
	Confidence        float64 `json:"confidence"`
	ElevationAnomalyM float64 `json:"elevation_anomaly_m"`

	MotifScore          *float64 `json:"motif_score,omitempty"`
	FoundationDiameterM *float64 `json:"foundation_diameter_m,omitempty"`
	PositionErrorM      *float64 `json:"position_error_m,omitempty"`

	Name               string `json:"name,omitempty"`
	Source             string `json:"source"`
	IsTrainingWindmill bool   `json:"is_training_windmill"`
}

// ValidationSummary aggregates the validation harness outcome for one scan.
type ValidationSummary struct {
	TotalSites     int     `json:"total_sites"`
	ValidatedSites int     `json:"validated_sites"`
	SkippedSites   int     `json:"skipped_sites"`
	DetectionRate  float64 `json:"detection_rate"`
	MeanScore      float64 `json:"mean_score"`
	Pass           bool    `json:"pass"`
}

// DetectionResult is the terminal output of one orchestrated scan.
type DetectionResult struct {
	Bounds       Bounds             `json:"bounds"`
	Candidates   []Candidate        `json:"candidates"`
	AreaKm2      float64            `json:"scanned_area_km2"`
	ResolutionM  float64            `json:"resolution_m"`
	Elapsed      time.Duration      `json:"-"`
	ElapsedMS    int64              `json:"elapsed_ms"`
	NoCandidates bool               `json:"no_candidates"`
	Validation   *ValidationSummary `json:"validation,omitempty"`
}

// CoherenceMap is the H×W per-pixel output of the coherence scanner.
// Values are row-major: Values[y*W+x].
type CoherenceMap struct {
	H, W   int
	Values []float64
}

// NewCoherenceMap allocates a zeroed map.
func NewCoherenceMap(h, w int) *CoherenceMap {
	return &CoherenceMap{H: h, W: w, Values: make([]float64, h*w)}
}

// At returns the coherence at pixel (y, x).
func (m *CoherenceMap) At(y, x int) float64 { return m.Values[y*m.W+x] }

// NonZero returns all strictly positive values, in row-major order.
func (m *CoherenceMap) NonZero() []float64 {
	out := make([]float64, 0, len(m.Values)/4)
	for _, v := range m.Values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func float64Ptr(v float64) *float64 { return &v }
