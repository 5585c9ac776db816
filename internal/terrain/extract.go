package terrain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ExtractParams are the tunable constants of candidate extraction.
type ExtractParams struct {
	// HighPercentile thresholds the raw map when it has a healthy value range.
	HighPercentile float64
	// FallbackPercentile thresholds the smoothed composite when the raw
	// range is below RangeEpsilon.
	FallbackPercentile float64
	// RangeEpsilon is the non-zero value range below which the composite
	// fallback is used.
	RangeEpsilon float64
	// MinNonZero: with fewer non-zero values than this, the threshold drops
	// to the minimum non-zero value so sparse maps still yield candidates.
	MinNonZero int
	// MinClusterPixels drops connected components smaller than this after
	// morphological cleaning.
	MinClusterPixels int
}

// DefaultExtractParams returns the production defaults.
func DefaultExtractParams() ExtractParams {
	return ExtractParams{
		HighPercentile:     0.85,
		FallbackPercentile: 0.70,
		RangeEpsilon:       0.01,
		MinNonZero:         10,
		MinClusterPixels:   1,
	}
}

// ExtractCandidates segments the coherence map into discrete candidates:
// adaptive thresholding, one erosion pass followed by two dilation passes to
// drop isolated noise pixels while keeping modest clusters connected, then
// connected-component labelling. Component centroids are mapped to lat/lon
// linearly over the bounding box — a documented planar simplification, not a
// geodesic mapping. An empty or all-zero map yields an empty list.
func ExtractCandidates(cm *CoherenceMap, bounds Bounds, resolutionM float64, p ExtractParams) []Candidate {
	if cm == nil || cm.H == 0 || cm.W == 0 {
		return []Candidate{}
	}
	mask := peakMask(cm, p)
	if mask == nil {
		return []Candidate{}
	}

	mask = erode(mask, cm.H, cm.W)
	mask = dilate(mask, cm.H, cm.W)
	mask = dilate(mask, cm.H, cm.W)

	return labelComponents(cm, mask, bounds, resolutionM, p.MinClusterPixels)
}

// peakMask computes the boolean peak mask via adaptive thresholding.
// Returns nil when the map has no non-zero values.
func peakMask(cm *CoherenceMap, p ExtractParams) []bool {
	nz := cm.NonZero()
	if len(nz) == 0 {
		return nil
	}
	sort.Float64s(nz)
	lo, hi := nz[0], nz[len(nz)-1]

	source := cm.Values
	var threshold float64
	switch {
	case len(nz) < p.MinNonZero:
		threshold = lo
	case hi-lo < p.RangeEpsilon:
		// Near-flat map: threshold a composite of a smoothed copy, a
		// local-maximum filtered copy and the gradient magnitude instead of
		// the raw values.
		source = composite(cm)
		cnz := make([]float64, 0, len(source))
		for _, v := range source {
			if v > 0 {
				cnz = append(cnz, v)
			}
		}
		if len(cnz) == 0 {
			return nil
		}
		sort.Float64s(cnz)
		threshold = stat.Quantile(p.FallbackPercentile, stat.Empirical, cnz, nil)
	default:
		threshold = stat.Quantile(p.HighPercentile, stat.Empirical, nz, nil)
	}

	mask := make([]bool, len(cm.Values))
	for i, v := range source {
		mask[i] = v >= threshold && cm.Values[i] > 0
	}
	return mask
}

// composite blends a 3×3 box-smoothed copy, a 3×3 local-maximum filtered
// copy and the gradient magnitude of the map into one field.
func composite(cm *CoherenceMap) []float64 {
	h, w := cm.H, cm.W
	n := h * w
	smoothed := make([]float64, n)
	maxed := make([]float64, n)
	grad := make([]float64, n)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, mx float64
			count := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= h || nx < 0 || nx >= w {
						continue
					}
					v := cm.Values[ny*w+nx]
					sum += v
					if v > mx {
						mx = v
					}
					count++
				}
			}
			i := y*w + x
			smoothed[i] = sum / float64(count)
			maxed[i] = mx

			var gx, gy float64
			if x > 0 && x < w-1 {
				gx = (cm.Values[i+1] - cm.Values[i-1]) / 2
			}
			if y > 0 && y < h-1 {
				gy = (cm.Values[i+w] - cm.Values[i-w]) / 2
			}
			grad[i] = math.Hypot(gx, gy)
		}
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.5*smoothed[i] + 0.3*maxed[i] + 0.2*grad[i]
	}
	return out
}

// erode clears every set pixel that has an unset 8-neighbour (out-of-grid
// counts as unset), removing single-pixel noise.
func erode(mask []bool, h, w int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			keep := true
			for dy := -1; dy <= 1 && keep; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= h || nx < 0 || nx >= w || !mask[ny*w+nx] {
						keep = false
						break
					}
				}
			}
			out[y*w+x] = keep
		}
	}
	return out
}

// dilate sets every pixel that has a set 8-neighbour.
func dilate(mask []bool, h, w int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				out[y*w+x] = true
				continue
			}
			for dy := -1; dy <= 1 && !out[y*w+x]; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny >= 0 && ny < h && nx >= 0 && nx < w && mask[ny*w+nx] {
						out[y*w+x] = true
						break
					}
				}
			}
		}
	}
	return out
}

// labelComponents labels 8-connected components of the mask and emits one
// Candidate per component at its pixel centroid.
func labelComponents(cm *CoherenceMap, mask []bool, bounds Bounds, resolutionM float64, minPixels int) []Candidate {
	h, w := cm.H, cm.W
	visited := make([]bool, len(mask))
	queue := make([]int, 0, 64)
	candidates := []Candidate{}

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		queue = queue[:0]
		queue = append(queue, start)
		visited[start] = true

		var sumY, sumX float64
		minY, maxY := h, -1
		minX, maxX := w, -1
		pixels := 0

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			y, x := i/w, i%w
			sumY += float64(y)
			sumX += float64(x)
			pixels++
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= h || nx < 0 || nx >= w {
						continue
					}
					j := ny*w + nx
					if mask[j] && !visited[j] {
						visited[j] = true
						queue = append(queue, j)
					}
				}
			}
		}

		if pixels < minPixels {
			continue
		}

		cy := sumY / float64(pixels)
		cx := sumX / float64(pixels)
		coh := cm.At(clampIndex(int(math.Round(cy)), h), clampIndex(int(math.Round(cx)), w))

		// Linear centroid→lat/lon mapping over the bounding box.
		lat := bounds.LatMin + cy/float64(maxInt(h-1, 1))*bounds.LatExtent()
		lon := bounds.LonMin + cx/float64(maxInt(w-1, 1))*bounds.LonExtent()

		// Foundation diameter from the component's pixel extent.
		extent := float64(maxInt(maxY-minY, maxX-minX) + 1)
		diameter := extent * resolutionM

		candidates = append(candidates, Candidate{
			Lat:                 lat,
			Lon:                 lon,
			Psi0:                coh,
			Phi0:                0.95 * coh,
			Coherence:           coh,
			Confidence:          math.Min(coh, 1),
			ElevationAnomalyM:   2 * coh,
			FoundationDiameterM: float64Ptr(diameter),
			Source:              SourceScan,
		})
	}
	return candidates
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
