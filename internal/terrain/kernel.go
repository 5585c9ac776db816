package terrain

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/terrain.report/internal/monitoring"
)

// DefaultKernelWindow is the side length, in pixels, of the square training
// patch extracted around each site and of the sliding window used by the
// coherence scanner.
const DefaultKernelWindow = 21

// kernelEnergyFloor is the total contradiction-tensor energy below which the
// training data is considered degenerate (all patches flat or out of grid).
const kernelEnergyFloor = 1e-18

// ErrNoTrainingSites is returned by ConstructKernel when the caller supplies
// an empty training list. Training sites that merely fall outside the grid
// are not an error; they degrade the kernel instead.
var ErrNoTrainingSites = errors.New("no training sites supplied")

// Kernel is the learned NumBands×NumBands feature-interaction matrix.
// After construction it is symmetric within numerical tolerance and has unit
// Frobenius norm. Energy records the contradiction-tensor energy the kernel
// was learned from; a near-zero Energy marks a degenerate (valid but
// low-confidence) kernel.
type Kernel struct {
	Weights [NumBands][NumBands]float64
	Energy  float64
}

// FrobeniusNorm returns the Frobenius norm of the kernel matrix.
func (k *Kernel) FrobeniusNorm() float64 {
	var s float64
	for i := 0; i < NumBands; i++ {
		for j := 0; j < NumBands; j++ {
			s += k.Weights[i][j] * k.Weights[i][j]
		}
	}
	return math.Sqrt(s)
}

// Degenerate reports whether the kernel was learned from effectively no
// usable signal.
func (k *Kernel) Degenerate() bool { return k.Energy < kernelEnergyFloor }

// normalize scales the kernel to unit Frobenius norm. A zero matrix is
// replaced by the uniform fallback first so the result is always finite.
func (k *Kernel) normalize() {
	n := k.FrobeniusNorm()
	if n < 1e-12 {
		*k = fallbackKernel(k.Energy)
		return
	}
	for i := 0; i < NumBands; i++ {
		for j := 0; j < NumBands; j++ {
			k.Weights[i][j] /= n
		}
	}
}

// fallbackKernel is the deterministic unit-norm kernel used when training
// produced no signal: an identity remix scaled to Frobenius norm 1.
func fallbackKernel(energy float64) Kernel {
	var k Kernel
	k.Energy = energy
	v := 1 / math.Sqrt(NumBands)
	for i := 0; i < NumBands; i++ {
		k.Weights[i][i] = v
	}
	return k
}

// ConstructKernel learns the feature-interaction kernel from training site
// patches. For each usable site it accumulates, per ordered band pair
// (i, j), a per-pixel "contradiction" value (the cross product of the two
// bands' spatial gradients) weighted by the pair's structure constant and by
// local gradient magnitude, into an F×F×window² tensor. The kernel is the
// top eigenvector of the flattened tensor's Gram matrix, reshaped to F×F,
// symmetrised by averaging with its conjugates under the seven structure
// generators, and renormalised to unit Frobenius norm.
//
// Degenerate inputs (every patch out of grid or flat) yield a finite
// fallback kernel, never an error; only an empty site list errors.
func ConstructKernel(grid *FeatureGrid, sites []Site, window int) (*Kernel, error) {
	if len(sites) == 0 {
		return nil, ErrNoTrainingSites
	}
	if window < 3 {
		window = DefaultKernelWindow
	}
	if window%2 == 0 {
		window++
	}

	n := window * window
	tensor := make([]float64, NumBands*NumBands*n)

	gx := make([][]float64, NumBands)
	gy := make([][]float64, NumBands)
	band := make([]float64, n)
	for f := 0; f < NumBands; f++ {
		gx[f] = make([]float64, n)
		gy[f] = make([]float64, n)
	}

	var patch *Patch
	usable := 0
	for _, site := range sites {
		cy, cx, ok := grid.GridCoords(site.Lat, site.Lon)
		if !ok {
			monitoring.Logf("kernel: training site %q outside grid, skipping", site.Name)
			continue
		}
		patch, ok = grid.ExtractPatch(cy, cx, window, patch)
		if !ok {
			monitoring.Logf("kernel: training site %q too close to grid edge, skipping", site.Name)
			continue
		}
		usable++

		for f := 0; f < NumBands; f++ {
			patch.Band(f, band)
			gradient(band, window, gx[f], gy[f])
		}

		for i := 0; i < NumBands; i++ {
			for j := 0; j < NumBands; j++ {
				if i == j {
					continue
				}
				sw := structureWeight(i, j)
				if sw == 0 {
					continue
				}
				row := (i*NumBands + j) * n
				gxi, gyi, gxj, gyj := gx[i], gy[i], gx[j], gy[j]
				for p := 0; p < n; p++ {
					cross := gxi[p]*gyj[p] - gyi[p]*gxj[p]
					magw := math.Hypot(gxi[p], gyi[p]) + math.Hypot(gxj[p], gyj[p])
					tensor[row+p] += sw * cross * magw
				}
			}
		}
	}

	var energy float64
	for _, v := range tensor {
		energy += v * v
	}

	if usable == 0 || energy < kernelEnergyFloor {
		monitoring.Logf("kernel: degenerate training input (%d/%d usable sites, energy=%.3g), returning fallback kernel",
			usable, len(sites), energy)
		k := fallbackKernel(0)
		return &k, nil
	}

	k := kernelFromTensor(tensor, n, energy)
	symmetrize(k)
	k.normalize()
	return k, nil
}

// kernelFromTensor builds the candidate kernel: the flattened tensor is an
// (F²)×(window²) matrix A; the kernel is the eigenvector of A·Aᵀ with the
// largest eigenvalue, reshaped to F×F.
func kernelFromTensor(tensor []float64, cols int, energy float64) *Kernel {
	const dim = NumBands * NumBands
	gram := mat.NewSymDense(dim, nil)
	for r := 0; r < dim; r++ {
		rowR := tensor[r*cols : (r+1)*cols]
		for s := r; s < dim; s++ {
			rowS := tensor[s*cols : (s+1)*cols]
			var dot float64
			for p := 0; p < cols; p++ {
				dot += rowR[p] * rowS[p]
			}
			gram.SetSym(r, s, dot)
		}
	}

	var es mat.EigenSym
	if !es.Factorize(gram, true) {
		// Should not happen for a finite Gram matrix; degrade rather than fail.
		monitoring.Logf("kernel: eigendecomposition failed, returning fallback kernel")
		k := fallbackKernel(energy)
		return &k
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// EigenSym orders eigenvalues ascending; the principal eigenvector is the
	// last column. Fix its sign so construction is deterministic.
	top := make([]float64, dim)
	lead := 0
	for r := 0; r < dim; r++ {
		top[r] = vecs.At(r, dim-1)
		if math.Abs(top[r]) > math.Abs(top[lead]) {
			lead = r
		}
	}
	if top[lead] < 0 {
		for r := range top {
			top[r] = -top[r]
		}
	}

	k := &Kernel{Energy: energy}
	for i := 0; i < NumBands; i++ {
		for j := 0; j < NumBands; j++ {
			k.Weights[i][j] = top[i*NumBands+j]
		}
	}
	return k
}

// symmetrize averages the kernel with its conjugate under each of the seven
// structure generators in turn, then with its own transpose, enforcing the
// invariance required of the learned kernel.
func symmetrize(k *Kernel) {
	for a := 0; a < 7; a++ {
		g := &structureTable[a]
		var conj [NumBands][NumBands]float64
		// conj = G · K · Gᵀ
		for i := 0; i < NumBands; i++ {
			for j := 0; j < NumBands; j++ {
				var s float64
				for p := 0; p < NumBands; p++ {
					if g[i][p] == 0 {
						continue
					}
					for q := 0; q < NumBands; q++ {
						s += g[i][p] * k.Weights[p][q] * g[j][q]
					}
				}
				conj[i][j] = s
			}
		}
		for i := 0; i < NumBands; i++ {
			for j := 0; j < NumBands; j++ {
				k.Weights[i][j] = (k.Weights[i][j] + conj[i][j]) / 2
			}
		}
	}
	for i := 0; i < NumBands; i++ {
		for j := i + 1; j < NumBands; j++ {
			avg := (k.Weights[i][j] + k.Weights[j][i]) / 2
			k.Weights[i][j] = avg
			k.Weights[j][i] = avg
		}
	}
}
