package terrain

import (
	"hash/fnv"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// CoherenceParams are the tunable constants of the coherence scanner. The
// score weights deliberately favour the variance, standard-deviation and
// edge terms over the raw range term: foundation mounds are edge-rich and
// moderately elevated, while raw range alone triggers on any step.
type CoherenceParams struct {
	// Window is the sliding window side in pixels. Must match the window the
	// kernel was trained with.
	Window int

	// FlatnessFloor is the minimum elevation-band range within a window for
	// the patch to be scored at all. Flatter patches contribute zero.
	FlatnessFloor float64

	// Score weights. See the package documentation for the score formula.
	WeightRange        float64
	WeightVariance     float64
	WeightStdDev       float64
	WeightMeanAbs      float64
	WeightGradMean     float64
	WeightGradVariance float64

	// JitterAmplitude is the half-width of the deterministic multiplicative
	// jitter applied to each patch score (0.03 → ±3%).
	JitterAmplitude float64

	// MaxCoherence clamps the per-pixel score.
	MaxCoherence float64

	// AbsoluteFloor drops post-scan values below this constant when the map
	// has a healthy dynamic range.
	AbsoluteFloor float64

	// LowRangeEpsilon: when the non-zero value range is below this, the map
	// is considered near-flat and the floor switches to the 25th percentile
	// of non-zero values.
	LowRangeEpsilon float64

	// Workers is the number of goroutines scanning rows. Zero means
	// runtime.NumCPU().
	Workers int
}

// DefaultCoherenceParams returns the production defaults.
func DefaultCoherenceParams() CoherenceParams {
	return CoherenceParams{
		Window:             DefaultKernelWindow,
		FlatnessFloor:      0.05,
		WeightRange:        0.10,
		WeightVariance:     0.30,
		WeightStdDev:       0.25,
		WeightMeanAbs:      0.15,
		WeightGradMean:     0.15,
		WeightGradVariance: 0.05,
		JitterAmplitude:    0.03,
		MaxCoherence:       2.0,
		AbsoluteFloor:      0.05,
		LowRangeEpsilon:    0.10,
	}
}

// ScanCoherence slides the kernel over every valid pixel of the grid and
// returns the per-pixel coherence map. Rows are scanned in parallel; each
// worker writes only its own output rows. The result is deterministic for
// identical inputs: the per-patch jitter is seeded purely from patch content
// and grid position.
func ScanCoherence(grid *FeatureGrid, k *Kernel, p CoherenceParams) *CoherenceMap {
	cm := NewCoherenceMap(grid.H, grid.W)
	if grid.H == 0 || grid.W == 0 {
		return cm
	}
	window := p.Window
	if window < 3 {
		window = DefaultKernelWindow
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	rows := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc := newRowScanner(grid, k, p, window)
			for y := range rows {
				sc.scanRow(y, cm)
			}
		}()
	}
	for y := 0; y < grid.H; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()

	applyAdaptiveFloor(cm, p)
	return cm
}

// rowScanner holds the per-worker scratch buffers so the hot loop does not
// allocate.
type rowScanner struct {
	grid   *FeatureGrid
	kernel *Kernel
	params CoherenceParams
	window int

	patch *Patch
	remix []float64 // window²×NumBands remixed patch
	elev  []float64 // remixed elevation channel
	gxBuf []float64
	gyBuf []float64
	gmag  []float64
}

func newRowScanner(grid *FeatureGrid, k *Kernel, p CoherenceParams, window int) *rowScanner {
	n := window * window
	return &rowScanner{
		grid:   grid,
		kernel: k,
		params: p,
		window: window,
		remix:  make([]float64, n*NumBands),
		elev:   make([]float64, n),
		gxBuf:  make([]float64, n),
		gyBuf:  make([]float64, n),
		gmag:   make([]float64, n),
	}
}

func (sc *rowScanner) scanRow(y int, cm *CoherenceMap) {
	for x := 0; x < sc.grid.W; x++ {
		if !sc.grid.Valid(y, x) {
			continue
		}
		var ok bool
		sc.patch, ok = sc.grid.ExtractPatch(y, x, sc.window, sc.patch)
		if !ok {
			continue
		}
		cm.Values[y*cm.W+x] = sc.scorePatch(y, x)
	}
}

// scorePatch computes the coherence of the current patch. A flat patch
// (elevation range under the floor) scores zero and is not remixed.
func (sc *rowScanner) scorePatch(y, x int) float64 {
	p := sc.patch
	if p.bandRange(ElevationBand) < sc.params.FlatnessFloor {
		return 0
	}

	// Per-pixel linear remix across feature bands:
	// remix[f1] = Σ_f2 patch[f2] · kernel[f1][f2].
	n := sc.window * sc.window
	for i := 0; i < n; i++ {
		in := p.Data[i*NumBands : (i+1)*NumBands]
		out := sc.remix[i*NumBands : (i+1)*NumBands]
		for f1 := 0; f1 < NumBands; f1++ {
			var s float64
			row := &sc.kernel.Weights[f1]
			for f2 := 0; f2 < NumBands; f2++ {
				s += in[f2] * row[f2]
			}
			out[f1] = s
		}
	}
	for i := 0; i < n; i++ {
		sc.elev[i] = sc.remix[i*NumBands+ElevationBand]
	}

	lo, hi := sc.elev[0], sc.elev[0]
	var meanAbs float64
	for _, v := range sc.elev {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		meanAbs += math.Abs(v)
	}
	meanAbs /= float64(n)

	variance := stat.Variance(sc.elev, nil)
	stddev := math.Sqrt(variance)

	gradient(sc.elev, sc.window, sc.gxBuf, sc.gyBuf)
	for i := 0; i < n; i++ {
		sc.gmag[i] = math.Hypot(sc.gxBuf[i], sc.gyBuf[i])
	}
	gradMean := stat.Mean(sc.gmag, nil)
	gradVar := stat.Variance(sc.gmag, nil)

	c := sc.params.WeightRange*(hi-lo) +
		sc.params.WeightVariance*variance +
		sc.params.WeightStdDev*stddev +
		sc.params.WeightMeanAbs*meanAbs +
		sc.params.WeightGradMean*gradMean +
		sc.params.WeightGradVariance*gradVar

	c *= patchJitter(sc.elev, y, x, sc.params.JitterAmplitude)

	if c < 0 {
		c = 0
	}
	if c > sc.params.MaxCoherence {
		c = sc.params.MaxCoherence
	}
	return c
}

// patchJitter returns a multiplicative factor in [1-amp, 1+amp] seeded
// purely from patch content and grid position. It is a tie-breaker between
// near-identical patches, not a source of randomness: identical input always
// produces the identical factor.
func patchJitter(elev []float64, y, x int, amp float64) float64 {
	if amp <= 0 {
		return 1
	}
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range elev {
		bits := math.Float64bits(v)
		for b := 0; b < 8; b++ {
			buf[b] = byte(bits >> (8 * b))
		}
		h.Write(buf[:])
	}
	pos := uint64(y)<<32 | uint64(uint32(x))
	for b := 0; b < 8; b++ {
		buf[b] = byte(pos >> (8 * b))
	}
	h.Write(buf[:])

	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return 1 + amp*(2*rng.Float64()-1)
}

// applyAdaptiveFloor suppresses the low tail of the map. With negligible
// dynamic range the 25th percentile of non-zero values is used as the floor
// so that something always survives; otherwise the small absolute constant
// applies.
func applyAdaptiveFloor(cm *CoherenceMap, p CoherenceParams) {
	nz := cm.NonZero()
	if len(nz) == 0 {
		return
	}
	lo, hi := nz[0], nz[0]
	for _, v := range nz {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	floor := p.AbsoluteFloor
	if hi-lo < p.LowRangeEpsilon {
		sort.Float64s(nz)
		floor = stat.Quantile(0.25, stat.Empirical, nz, nil)
	}
	for i, v := range cm.Values {
		if v < floor {
			cm.Values[i] = 0
		}
	}
}
