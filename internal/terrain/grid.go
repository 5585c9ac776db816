package terrain

import "math"

// Feature band indices into a FeatureGrid. The order is fixed: it matches
// the band order produced by the grid provider and the kernel's row/column
// assignment, so it must never be reordered.
const (
	BandVegetation = iota
	BandNormalizedHeight
	BandSlope
	BandCurvature
	BandBuilt
	BandFractalComplexity
	BandElevationAnomaly
	BandFractalStability
	NumBands
)

// BandNames maps band indices to their canonical names.
var BandNames = [NumBands]string{
	"vegetation_proxy",
	"normalized_height",
	"slope",
	"curvature",
	"built_proxy",
	"fractal_complexity",
	"elevation_anomaly",
	"fractal_stability",
}

// ElevationBand is the band used for flat-patch rejection and as the channel
// the coherence statistics are computed from after the kernel remix.
const ElevationBand = BandNormalizedHeight

// Bounds is a geographic bounding box in decimal degrees.
type Bounds struct {
	LatMin float64 `json:"lat_min"`
	LonMin float64 `json:"lon_min"`
	LatMax float64 `json:"lat_max"`
	LonMax float64 `json:"lon_max"`
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (lat, lon float64) {
	return (b.LatMin + b.LatMax) / 2, (b.LonMin + b.LonMax) / 2
}

// LatExtent returns the latitude span in degrees.
func (b Bounds) LatExtent() float64 { return b.LatMax - b.LatMin }

// LonExtent returns the longitude span in degrees.
func (b Bounds) LonExtent() float64 { return b.LonMax - b.LonMin }

// Valid reports whether the box is non-degenerate and within plausible ranges.
func (b Bounds) Valid() bool {
	return b.LatMin < b.LatMax && b.LonMin < b.LonMax &&
		b.LatMin >= -90 && b.LatMax <= 90 && b.LonMin >= -180 && b.LonMax <= 180
}

// FeatureGrid is an H×W raster of NumBands feature values with a per-pixel
// validity mask and geo-registration. Data is laid out row-major with the
// band index innermost: Data[(y*W+x)*NumBands+f]. Grids are immutable once
// produced by the provider; the detection pipeline only reads them.
type FeatureGrid struct {
	H, W        int
	Data        []float64
	Mask        []bool
	Bounds      Bounds
	ResolutionM float64
}

// NewFeatureGrid allocates a zeroed grid with an all-valid mask.
func NewFeatureGrid(h, w int, bounds Bounds, resolutionM float64) *FeatureGrid {
	mask := make([]bool, h*w)
	for i := range mask {
		mask[i] = true
	}
	return &FeatureGrid{
		H:           h,
		W:           w,
		Data:        make([]float64, h*w*NumBands),
		Mask:        mask,
		Bounds:      bounds,
		ResolutionM: resolutionM,
	}
}

// At returns the value of band f at pixel (y, x).
func (g *FeatureGrid) At(y, x, f int) float64 {
	return g.Data[(y*g.W+x)*NumBands+f]
}

// Set stores the value of band f at pixel (y, x).
func (g *FeatureGrid) Set(y, x, f int, v float64) {
	g.Data[(y*g.W+x)*NumBands+f] = v
}

// Valid reports whether pixel (y, x) carries usable data.
func (g *FeatureGrid) Valid(y, x int) bool {
	return g.Mask[y*g.W+x]
}

// GridCoords maps a geographic point to pixel coordinates by linear
// interpolation over the bounding box. Row 0 is the southern edge. This is
// the same planar simplification used throughout the pipeline, not a
// geodesic mapping. ok is false when the point falls outside the grid.
func (g *FeatureGrid) GridCoords(lat, lon float64) (y, x int, ok bool) {
	if g.H < 2 || g.W < 2 || !g.Bounds.Contains(lat, lon) {
		return 0, 0, false
	}
	fy := (lat - g.Bounds.LatMin) / g.Bounds.LatExtent() * float64(g.H-1)
	fx := (lon - g.Bounds.LonMin) / g.Bounds.LonExtent() * float64(g.W-1)
	y = int(math.Round(fy))
	x = int(math.Round(fx))
	if y < 0 || y >= g.H || x < 0 || x >= g.W {
		return 0, 0, false
	}
	return y, x, true
}

// LatLon maps fractional pixel coordinates back to a geographic point using
// the inverse of the GridCoords mapping.
func (g *FeatureGrid) LatLon(y, x float64) (lat, lon float64) {
	lat = g.Bounds.LatMin + y/float64(g.H-1)*g.Bounds.LatExtent()
	lon = g.Bounds.LonMin + x/float64(g.W-1)*g.Bounds.LonExtent()
	return lat, lon
}

// Patch is a square window of feature values cut from a grid. Layout matches
// FeatureGrid: Data[(py*Side+px)*NumBands+f].
type Patch struct {
	Side int
	Data []float64
}

// NewPatch allocates a zeroed patch with the given side length.
func NewPatch(side int) *Patch {
	return &Patch{Side: side, Data: make([]float64, side*side*NumBands)}
}

// At returns the value of band f at patch pixel (py, px).
func (p *Patch) At(py, px, f int) float64 {
	return p.Data[(py*p.Side+px)*NumBands+f]
}

// Band copies band f into dst, which must have length Side*Side.
func (p *Patch) Band(f int, dst []float64) {
	n := p.Side * p.Side
	for i := 0; i < n; i++ {
		dst[i] = p.Data[i*NumBands+f]
	}
}

// ExtractPatch cuts a window-sized patch centred on pixel (cy, cx) into dst,
// allocating when dst is nil or the wrong size. ok is false when the window
// does not fit fully inside the grid.
func (g *FeatureGrid) ExtractPatch(cy, cx, window int, dst *Patch) (*Patch, bool) {
	half := window / 2
	if cy-half < 0 || cy+half >= g.H || cx-half < 0 || cx+half >= g.W {
		return dst, false
	}
	if dst == nil || dst.Side != window {
		dst = NewPatch(window)
	}
	for py := 0; py < window; py++ {
		srcOff := ((cy-half+py)*g.W + (cx - half)) * NumBands
		dstOff := py * window * NumBands
		copy(dst.Data[dstOff:dstOff+window*NumBands], g.Data[srcOff:srcOff+window*NumBands])
	}
	return dst, true
}

// bandRange returns max-min of band f across the patch.
func (p *Patch) bandRange(f int) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	n := p.Side * p.Side
	for i := 0; i < n; i++ {
		v := p.Data[i*NumBands+f]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// gradient computes central-difference spatial gradients of a Side×Side
// scalar field. Forward/backward differences are used at the edges. gx and
// gy must each have length len(field).
func gradient(field []float64, side int, gx, gy []float64) {
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			i := y*side + x
			switch {
			case x == 0:
				gx[i] = field[i+1] - field[i]
			case x == side-1:
				gx[i] = field[i] - field[i-1]
			default:
				gx[i] = (field[i+1] - field[i-1]) / 2
			}
			switch {
			case y == 0:
				gy[i] = field[i+side] - field[i]
			case y == side-1:
				gy[i] = field[i] - field[i-side]
			default:
				gy[i] = (field[i+side] - field[i-side]) / 2
			}
		}
	}
}
