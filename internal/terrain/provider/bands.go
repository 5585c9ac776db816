package provider

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/terrain.report/internal/terrain"
)

// Band derivation windows, in pixels. The fractal bands compare local
// roughness at two scales; the anomaly band subtracts a neighbourhood mean.
const (
	localWindow    = 3
	regionalWindow = 9
)

// DeriveFeatureGrid computes the eight feature bands from a raw digital
// elevation model. elev is row-major H×W metres above datum; NaN cells are
// marked invalid in the grid mask. The band definitions are proxies derived
// from elevation alone — the service supplies no multispectral data — and
// are tuned for the compact, edge-rich mounds the pipeline hunts:
//
//	vegetation_proxy    high-frequency roughness residual
//	normalized_height   elevation rescaled to [0,1] over the tile
//	slope               gradient magnitude
//	curvature           Laplacian
//	built_proxy         local edge density
//	fractal_complexity  ratio of fine- to coarse-scale roughness
//	elevation_anomaly   elevation minus regional mean
//	fractal_stability   1 − |complexity drift between scales|
func DeriveFeatureGrid(elev [][]float64, bounds terrain.Bounds, resolutionM float64) *terrain.FeatureGrid {
	h := len(elev)
	w := 0
	if h > 0 {
		w = len(elev[0])
	}
	grid := terrain.NewFeatureGrid(h, w, bounds, resolutionM)
	if h == 0 || w == 0 {
		return grid
	}

	// Tile-wide min/max for normalisation, ignoring NaN holes.
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := elev[y][x]
			if math.IsNaN(v) {
				grid.Mask[y*w+x] = false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	at := func(y, x int) float64 {
		if y < 0 {
			y = 0
		}
		if y >= h {
			y = h - 1
		}
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		v := elev[y][x]
		if math.IsNaN(v) {
			return lo
		}
		return v
	}

	var localBuf, regionalBuf []float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !grid.Valid(y, x) {
				continue
			}
			z := at(y, x)

			gx := (at(y, x+1) - at(y, x-1)) / 2
			gy := (at(y+1, x) - at(y-1, x)) / 2
			slope := math.Hypot(gx, gy) / resolutionM

			lap := at(y, x+1) + at(y, x-1) + at(y+1, x) + at(y-1, x) - 4*z
			curvature := lap / (resolutionM * resolutionM)

			localBuf = windowValues(at, y, x, localWindow, localBuf)
			regionalBuf = windowValues(at, y, x, regionalWindow, regionalBuf)

			localMean := stat.Mean(localBuf, nil)
			localStd := stat.StdDev(localBuf, nil)
			regionalMean := stat.Mean(regionalBuf, nil)
			regionalStd := stat.StdDev(regionalBuf, nil)

			// Roughness ratio across scales; 1 means scale-free terrain.
			complexity := 0.0
			if regionalStd > 1e-9 {
				complexity = localStd / regionalStd
			}
			stability := 1 - math.Min(math.Abs(complexity-1), 1)

			edgeDensity := edgeFraction(at, y, x, localWindow, resolutionM)

			grid.Set(y, x, terrain.BandVegetation, math.Abs(z-localMean))
			grid.Set(y, x, terrain.BandNormalizedHeight, (z-lo)/span)
			grid.Set(y, x, terrain.BandSlope, slope)
			grid.Set(y, x, terrain.BandCurvature, curvature)
			grid.Set(y, x, terrain.BandBuilt, edgeDensity)
			grid.Set(y, x, terrain.BandFractalComplexity, complexity)
			grid.Set(y, x, terrain.BandElevationAnomaly, z-regionalMean)
			grid.Set(y, x, terrain.BandFractalStability, stability)
		}
	}
	return grid
}

// windowValues collects the elevation values of a (2r+1)² window into buf.
func windowValues(at func(y, x int) float64, cy, cx, window int, buf []float64) []float64 {
	r := window / 2
	buf = buf[:0]
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			buf = append(buf, at(cy+dy, cx+dx))
		}
	}
	return buf
}

// edgeFraction returns the fraction of window pixels whose slope exceeds a
// fixed step threshold, a crude built-structure proxy.
func edgeFraction(at func(y, x int) float64, cy, cx, window int, resolutionM float64) float64 {
	const stepThreshold = 0.15 // m/m
	r := window / 2
	edges, total := 0, 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			y, x := cy+dy, cx+dx
			gx := (at(y, x+1) - at(y, x-1)) / 2
			gy := (at(y+1, x) - at(y-1, x)) / 2
			if math.Hypot(gx, gy)/resolutionM > stepThreshold {
				edges++
			}
			total++
		}
	}
	return float64(edges) / float64(total)
}
