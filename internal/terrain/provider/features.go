package provider

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

// featureWindow is the square window, in pixels, sampled around a site for
// motif feature extraction.
const featureWindow = 7

// ExtractFeatures samples the grid around a site and returns the feature
// dictionary the motif scorer consumes. It satisfies terrain.FeatureExtractor.
// Sites outside the grid error; the caller isolates that per candidate.
func ExtractFeatures(lat, lon float64, grid *terrain.FeatureGrid) (map[string]float64, error) {
	cy, cx, ok := grid.GridCoords(lat, lon)
	if !ok {
		return nil, fmt.Errorf("site (%.5f, %.5f) outside grid", lat, lon)
	}

	r := featureWindow / 2
	heights := make([]float64, 0, featureWindow*featureWindow)
	var curvSum, slopeSum, profSum float64
	n := 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			y, x := cy+dy, cx+dx
			if y < 0 || y >= grid.H || x < 0 || x >= grid.W || !grid.Valid(y, x) {
				continue
			}
			heights = append(heights, grid.At(y, x, terrain.BandNormalizedHeight))
			curvSum += grid.At(y, x, terrain.BandCurvature)
			slopeSum += grid.At(y, x, terrain.BandSlope)
			profSum += math.Abs(grid.At(y, x, terrain.BandCurvature))
			n++
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("site (%.5f, %.5f) has no valid pixels in window", lat, lon)
	}

	heightVar := 0.0
	if len(heights) > 1 {
		heightVar = stat.Variance(heights, nil)
	}

	// Aspect from the central gradient, in radians from east.
	var aspect float64
	if cy > 0 && cy < grid.H-1 && cx > 0 && cx < grid.W-1 {
		gx := (grid.At(cy, cx+1, terrain.BandNormalizedHeight) - grid.At(cy, cx-1, terrain.BandNormalizedHeight)) / 2
		gy := (grid.At(cy+1, cx, terrain.BandNormalizedHeight) - grid.At(cy-1, cx, terrain.BandNormalizedHeight)) / 2
		aspect = math.Atan2(gy, gx)
	}

	return map[string]float64{
		"elevation":         grid.At(cy, cx, terrain.BandNormalizedHeight),
		"height_variance":   heightVar,
		"curvature":         curvSum / float64(n),
		"slope":             slopeSum / float64(n),
		"aspect":            aspect,
		"elevation_anomaly": grid.At(cy, cx, terrain.BandElevationAnomaly),
		"normalized_height": grid.At(cy, cx, terrain.BandNormalizedHeight),
		"profile_curvature": profSum / float64(n),
	}, nil
}
