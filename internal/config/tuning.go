// Package config loads the detection tuning file. All fields are optional
// pointers so a partial JSON file only overrides what it names; the Get*
// accessors supply the compiled-in defaults for everything else. The same
// schema is served and accepted by the /api/params endpoint, so one JSON
// document works for both startup configuration and runtime updates.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

// TuningConfig is the root configuration for detection tuning parameters.
type TuningConfig struct {
	// Kernel params
	KernelWindow *int `json:"kernel_window,omitempty"`

	// Coherence params
	FlatnessFloor      *float64 `json:"flatness_floor,omitempty"`
	WeightRange        *float64 `json:"weight_range,omitempty"`
	WeightVariance     *float64 `json:"weight_variance,omitempty"`
	WeightStdDev       *float64 `json:"weight_std_dev,omitempty"`
	WeightMeanAbs      *float64 `json:"weight_mean_abs,omitempty"`
	WeightGradMean     *float64 `json:"weight_grad_mean,omitempty"`
	WeightGradVariance *float64 `json:"weight_grad_variance,omitempty"`
	JitterAmplitude    *float64 `json:"jitter_amplitude,omitempty"`
	ScanWorkers        *int     `json:"scan_workers,omitempty"`

	// Extraction params
	HighPercentile     *float64 `json:"high_percentile,omitempty"`
	FallbackPercentile *float64 `json:"fallback_percentile,omitempty"`
	MinClusterPixels   *int     `json:"min_cluster_pixels,omitempty"`

	// Motif params
	MotifEpsilon     *float64 `json:"motif_epsilon,omitempty"`
	MotifThreshold   *float64 `json:"motif_threshold,omitempty"`
	RefineConfidence *float64 `json:"refine_confidence,omitempty"`
	RefineMotif      *bool    `json:"refine_motif,omitempty"`

	// Orchestration params
	DedupRadiusM     *float64 `json:"dedup_radius_m,omitempty"`
	MaxSearchRadiusM *float64 `json:"max_search_radius_m,omitempty"`

	// Validation params
	ValidationPassScore *float64 `json:"validation_pass_score,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size; fields omitted from
// the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are in range.
func (c *TuningConfig) Validate() error {
	if c.KernelWindow != nil {
		if *c.KernelWindow < 3 || *c.KernelWindow > 101 {
			return fmt.Errorf("kernel_window must be between 3 and 101, got %d", *c.KernelWindow)
		}
		if *c.KernelWindow%2 == 0 {
			return fmt.Errorf("kernel_window must be odd, got %d", *c.KernelWindow)
		}
	}
	for name, v := range map[string]*float64{
		"high_percentile":       c.HighPercentile,
		"fallback_percentile":   c.FallbackPercentile,
		"motif_threshold":       c.MotifThreshold,
		"refine_confidence":     c.RefineConfidence,
		"validation_pass_score": c.ValidationPassScore,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}
	for name, v := range map[string]*float64{
		"flatness_floor":       c.FlatnessFloor,
		"weight_range":         c.WeightRange,
		"weight_variance":      c.WeightVariance,
		"weight_std_dev":       c.WeightStdDev,
		"weight_mean_abs":      c.WeightMeanAbs,
		"weight_grad_mean":     c.WeightGradMean,
		"weight_grad_variance": c.WeightGradVariance,
		"dedup_radius_m":       c.DedupRadiusM,
		"max_search_radius_m":  c.MaxSearchRadiusM,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}
	if c.MotifEpsilon != nil && *c.MotifEpsilon <= 0 {
		return fmt.Errorf("motif_epsilon must be positive, got %f", *c.MotifEpsilon)
	}
	if c.JitterAmplitude != nil && (*c.JitterAmplitude < 0 || *c.JitterAmplitude > 0.5) {
		return fmt.Errorf("jitter_amplitude must be between 0 and 0.5, got %f", *c.JitterAmplitude)
	}
	if c.ScanWorkers != nil && *c.ScanWorkers < 0 {
		return fmt.Errorf("scan_workers must be non-negative, got %d", *c.ScanWorkers)
	}
	if c.MinClusterPixels != nil && *c.MinClusterPixels < 1 {
		return fmt.Errorf("min_cluster_pixels must be at least 1, got %d", *c.MinClusterPixels)
	}
	return nil
}

// GetKernelWindow returns the kernel_window value or the default.
func (c *TuningConfig) GetKernelWindow() int {
	if c.KernelWindow == nil {
		return terrain.DefaultKernelWindow
	}
	return *c.KernelWindow
}

// GetFlatnessFloor returns the flatness_floor value or the default.
func (c *TuningConfig) GetFlatnessFloor() float64 {
	if c.FlatnessFloor == nil {
		return terrain.DefaultCoherenceParams().FlatnessFloor
	}
	return *c.FlatnessFloor
}

// GetWeightRange returns the weight_range value or the default.
func (c *TuningConfig) GetWeightRange() float64 {
	if c.WeightRange == nil {
		return terrain.DefaultCoherenceParams().WeightRange
	}
	return *c.WeightRange
}

// GetWeightVariance returns the weight_variance value or the default.
func (c *TuningConfig) GetWeightVariance() float64 {
	if c.WeightVariance == nil {
		return terrain.DefaultCoherenceParams().WeightVariance
	}
	return *c.WeightVariance
}

// GetWeightStdDev returns the weight_std_dev value or the default.
func (c *TuningConfig) GetWeightStdDev() float64 {
	if c.WeightStdDev == nil {
		return terrain.DefaultCoherenceParams().WeightStdDev
	}
	return *c.WeightStdDev
}

// GetWeightMeanAbs returns the weight_mean_abs value or the default.
func (c *TuningConfig) GetWeightMeanAbs() float64 {
	if c.WeightMeanAbs == nil {
		return terrain.DefaultCoherenceParams().WeightMeanAbs
	}
	return *c.WeightMeanAbs
}

// GetWeightGradMean returns the weight_grad_mean value or the default.
func (c *TuningConfig) GetWeightGradMean() float64 {
	if c.WeightGradMean == nil {
		return terrain.DefaultCoherenceParams().WeightGradMean
	}
	return *c.WeightGradMean
}

// GetWeightGradVariance returns the weight_grad_variance value or the default.
func (c *TuningConfig) GetWeightGradVariance() float64 {
	if c.WeightGradVariance == nil {
		return terrain.DefaultCoherenceParams().WeightGradVariance
	}
	return *c.WeightGradVariance
}

// GetJitterAmplitude returns the jitter_amplitude value or the default.
func (c *TuningConfig) GetJitterAmplitude() float64 {
	if c.JitterAmplitude == nil {
		return terrain.DefaultCoherenceParams().JitterAmplitude
	}
	return *c.JitterAmplitude
}

// GetScanWorkers returns the scan_workers value or the default. The default
// of zero lets the scanner size the pool from the CPU count.
func (c *TuningConfig) GetScanWorkers() int {
	if c.ScanWorkers == nil {
		return terrain.DefaultCoherenceParams().Workers
	}
	return *c.ScanWorkers
}

// GetHighPercentile returns the high_percentile value or the default.
func (c *TuningConfig) GetHighPercentile() float64 {
	if c.HighPercentile == nil {
		return terrain.DefaultExtractParams().HighPercentile
	}
	return *c.HighPercentile
}

// GetFallbackPercentile returns the fallback_percentile value or the default.
func (c *TuningConfig) GetFallbackPercentile() float64 {
	if c.FallbackPercentile == nil {
		return terrain.DefaultExtractParams().FallbackPercentile
	}
	return *c.FallbackPercentile
}

// GetMinClusterPixels returns the min_cluster_pixels value or the default.
func (c *TuningConfig) GetMinClusterPixels() int {
	if c.MinClusterPixels == nil {
		return terrain.DefaultExtractParams().MinClusterPixels
	}
	return *c.MinClusterPixels
}

// GetMotifEpsilon returns the motif_epsilon value or the default.
func (c *TuningConfig) GetMotifEpsilon() float64 {
	if c.MotifEpsilon == nil {
		return terrain.DefaultMotifEpsilon
	}
	return *c.MotifEpsilon
}

// GetMotifThreshold returns the motif_threshold value or the default.
func (c *TuningConfig) GetMotifThreshold() float64 {
	if c.MotifThreshold == nil {
		return terrain.DefaultParams().MotifThreshold
	}
	return *c.MotifThreshold
}

// GetRefineConfidence returns the refine_confidence value or the default.
func (c *TuningConfig) GetRefineConfidence() float64 {
	if c.RefineConfidence == nil {
		return terrain.DefaultParams().RefineConfidence
	}
	return *c.RefineConfidence
}

// GetRefineMotif returns the refine_motif value or the default.
func (c *TuningConfig) GetRefineMotif() bool {
	if c.RefineMotif == nil {
		return terrain.DefaultParams().RefineMotif
	}
	return *c.RefineMotif
}

// GetDedupRadiusM returns the dedup_radius_m value or the default.
func (c *TuningConfig) GetDedupRadiusM() float64 {
	if c.DedupRadiusM == nil {
		return terrain.DefaultParams().DedupRadiusM
	}
	return *c.DedupRadiusM
}

// GetMaxSearchRadiusM returns the max_search_radius_m value or the default.
func (c *TuningConfig) GetMaxSearchRadiusM() float64 {
	if c.MaxSearchRadiusM == nil {
		return terrain.DefaultParams().MaxSearchRadiusM
	}
	return *c.MaxSearchRadiusM
}

// GetValidationPassScore returns the validation_pass_score value or the default.
func (c *TuningConfig) GetValidationPassScore() float64 {
	if c.ValidationPassScore == nil {
		return terrain.DefaultValidationParams().PassScore
	}
	return *c.ValidationPassScore
}

// ToParams materialises a terrain.Params with every set field applied over
// the pipeline defaults.
func (c *TuningConfig) ToParams() terrain.Params {
	p := terrain.DefaultParams()
	p.KernelWindow = c.GetKernelWindow()
	p.Coherence.Window = p.KernelWindow
	p.Validation.Window = p.KernelWindow

	p.Coherence.FlatnessFloor = c.GetFlatnessFloor()
	p.Coherence.WeightRange = c.GetWeightRange()
	p.Coherence.WeightVariance = c.GetWeightVariance()
	p.Coherence.WeightStdDev = c.GetWeightStdDev()
	p.Coherence.WeightMeanAbs = c.GetWeightMeanAbs()
	p.Coherence.WeightGradMean = c.GetWeightGradMean()
	p.Coherence.WeightGradVariance = c.GetWeightGradVariance()
	p.Coherence.JitterAmplitude = c.GetJitterAmplitude()
	p.Coherence.Workers = c.GetScanWorkers()
	p.Extract.HighPercentile = c.GetHighPercentile()
	p.Extract.FallbackPercentile = c.GetFallbackPercentile()
	p.Extract.MinClusterPixels = c.GetMinClusterPixels()
	p.MotifEpsilon = c.GetMotifEpsilon()
	p.MotifThreshold = c.GetMotifThreshold()
	p.RefineConfidence = c.GetRefineConfidence()
	p.RefineMotif = c.GetRefineMotif()
	p.DedupRadiusM = c.GetDedupRadiusM()
	p.MaxSearchRadiusM = c.GetMaxSearchRadiusM()
	p.Validation.PassScore = c.GetValidationPassScore()
	return p
}
